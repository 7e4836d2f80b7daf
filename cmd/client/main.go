package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/service/app"
)

func main() {
	server := flag.String("server", "http://localhost:9090", "chat server base url")
	roomID := flag.String("room", "", "room id to join; empty creates a new room")
	name := flag.String("name", "", "display name")
	passphrase := flag.String("passphrase", "", "room passphrase")
	roomName := flag.String("room-name", "", "display name for a newly created room")
	ttl := flag.Duration("ttl", time.Hour, "lifetime of a newly created room")
	flag.Parse()

	author := *name
	for author == "" {
		fmt.Print("Enter your display name: ")
		if _, err := fmt.Scan(&author); err != nil {
			fmt.Println("error:", err)
			return
		}
	}

	api := app.NewAPI(*server, author)
	client := app.NewApp(api, author)
	ctx := context.Background()

	id := *roomID
	pass := *passphrase
	if id == "" {
		createdID, createdPass, err := client.CreateRoom(ctx, *roomName, pass, *ttl)
		if err != nil {
			fmt.Println("create room failed:", err)
			os.Exit(1)
		}
		id, pass = createdID, createdPass
		fmt.Printf("Room created: %s\n", id)
		fmt.Printf("Passphrase (share it out of band): %s\n", pass)
		fmt.Printf("Expires: %s\n", time.Now().Add(*ttl).Format(time.RFC1123))
		fmt.Println("Press enter to join...")
		fmt.Scanln()
	}

	for {
		err := client.Run(ctx, id, pass)
		if err == nil {
			return
		}
		if !errors.Is(err, model.ErrRoomNotAvailable) {
			fmt.Println("error:", err)
			os.Exit(1)
		}

		// Re-join flow: the room is gone or was never there.
		fmt.Println("That room does not exist or has expired.")
		fmt.Print("Enter another room id (empty to quit): ")
		id = ""
		fmt.Scanln(&id)
		if id == "" {
			return
		}
		fmt.Print("Passphrase: ")
		pass = ""
		fmt.Scanln(&pass)
	}
}
