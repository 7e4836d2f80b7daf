package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/config"
	blobRepo "github.com/Teachmetech/ChatSeal/internal/repository/blob"
	"github.com/Teachmetech/ChatSeal/internal/repository/memory"
	messageRepo "github.com/Teachmetech/ChatSeal/internal/repository/message"
	roomRepo "github.com/Teachmetech/ChatSeal/internal/repository/room"
	"github.com/Teachmetech/ChatSeal/internal/service/chat"
	"github.com/Teachmetech/ChatSeal/internal/service/presence"
	redisSvc "github.com/Teachmetech/ChatSeal/internal/service/redis"
	"github.com/Teachmetech/ChatSeal/internal/service/server"
	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms, messages, blobs := initStores(ctx, cfg)
	presenceStore, uploads := initRedis(cfg)

	svc := chat.NewService(rooms, messages, blobs, uploads, cfg.PublicBaseURL)

	go chat.NewReaper(svc).Run(ctx)

	s := server.NewHttpServer(cfg.ListenAddr, svc, presenceStore)
	if err := s.Run(ctx); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func initStores(ctx context.Context, cfg *config.Config) (chat.RoomStore, chat.MessageStore, chat.BlobStore) {
	if cfg.MongoURI == "" {
		log.Info("no mongo uri configured, using in-memory stores")
		return memory.NewRoomStore(), memory.NewMessageStore(), memory.NewBlobStore()
	}

	db, err := initMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("mongo connect failed", zap.Error(err))
	}

	rooms, err := roomRepo.NewRoomRepo(ctx, db)
	if err != nil {
		log.Fatal("room repo init failed", zap.Error(err))
	}
	messages, err := messageRepo.NewMessageRepo(ctx, db)
	if err != nil {
		log.Fatal("message repo init failed", zap.Error(err))
	}
	return rooms, messages, blobRepo.NewBlobRepo(db)
}

func initRedis(cfg *config.Config) (presence.Store, chat.UploadRegistry) {
	if cfg.RedisAddr == "" {
		log.Info("no redis addr configured, using in-memory presence and uploads")
		return memory.NewSortedSet(), chat.NewMemoryUploadRegistry()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	svc := redisSvc.NewRedis(rdb)
	return svc, redisSvc.NewUploadRegistry(svc)
}

func initMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, err
	}
	return client.Database(dbName), nil
}
