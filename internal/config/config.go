package config

import (
	"os"
	"strconv"
)

type Config struct {
	ListenAddr string
	// PublicBaseURL is what blob retrieval URLs are built from. Usually the
	// address clients reach the server on, not the bind address.
	PublicBaseURL string

	// MongoURI empty means in-memory stores (single process, volatile).
	MongoURI string
	MongoDB  string

	// RedisAddr empty means in-memory presence roster and upload registry.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Load() *Config {
	c := &Config{
		ListenAddr:    os.Getenv("CHATSEAL_LISTEN_ADDR"),
		PublicBaseURL: os.Getenv("CHATSEAL_PUBLIC_BASE_URL"),
		MongoURI:      os.Getenv("CHATSEAL_MONGO_URI"),
		MongoDB:       os.Getenv("CHATSEAL_MONGO_DB"),
		RedisAddr:     os.Getenv("CHATSEAL_REDIS_ADDR"),
		RedisPassword: os.Getenv("CHATSEAL_REDIS_PASSWORD"),
	}
	if v := os.Getenv("CHATSEAL_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "localhost:9090"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://" + c.ListenAddr
	}
	if c.MongoDB == "" {
		c.MongoDB = "chatseal"
	}
}
