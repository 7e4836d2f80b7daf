package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/cryptographic/envelope"
	"github.com/Teachmetech/ChatSeal/internal/cryptographic/kdf"
	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/session"
	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

const heartbeatInterval = 10 * time.Second

type (
	App struct {
		app     *tview.Application
		chatbox *tview.TextView
		roster  *tview.TextView
		input   *tview.InputField

		api       *API
		session   *session.Room
		passCache *session.PassphraseCache

		author    string
		sessionID string

		roomToken    string
		sessionToken string

		conn *websocket.Conn
	}
)

func NewApp(api *API, author string) *App {
	return &App{
		app:       tview.NewApplication(),
		api:       api,
		passCache: session.NewPassphraseCache(),
		author:    author,
		sessionID: uuid.NewString(),
	}
}

// CreateRoom makes a new passphrase-protected room and returns its id plus
// the passphrase that was used (generated when the caller gave none — the
// user has to share it out of band).
func (c *App) CreateRoom(ctx context.Context, name, passphrase string, ttl time.Duration) (string, string, error) {
	if passphrase == "" {
		generated, err := generatePassphrase()
		if err != nil {
			return "", "", err
		}
		passphrase = generated
	}

	salt, err := kdf.NewSalt()
	if err != nil {
		return "", "", err
	}

	roomID, err := c.api.CreateRoom(ctx, name, true, ttl, salt)
	if err != nil {
		return "", "", err
	}
	c.passCache.Remember(roomID, passphrase)
	return roomID, passphrase, nil
}

// Run joins the room, derives the key, and hands control to the UI until
// the user leaves. Key state is torn down on the way out; a room that turns
// out to be gone surfaces ErrRoomNotAvailable so the caller can re-prompt.
func (c *App) Run(ctx context.Context, roomID, passphrase string) error {
	room, err := c.api.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if passphrase == "" {
		if cached, ok := c.passCache.Lookup(roomID); ok {
			passphrase = cached
		}
	}
	if !room.PassphraseRequired {
		// Every message this client renders or sends goes through the room
		// key; without one the UI would come up empty and mute.
		return fmt.Errorf("room %s is not passphrase-protected; this client cannot join it", roomID)
	}
	if passphrase == "" {
		return fmt.Errorf("room %s requires a passphrase", roomID)
	}

	c.session = session.NewRoom(roomID)
	defer c.session.ClearKey()

	key, err := kdf.DeriveKey(passphrase, room.Salt)
	if err != nil {
		return err
	}
	c.session.SetKey(key)
	c.passCache.Remember(roomID, passphrase)

	c.buildUI()

	c.conn, err = c.api.Subscribe(roomID)
	if err != nil {
		return fmt.Errorf("subscribe to room feed: %w", err)
	}
	defer c.conn.Close()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go c.heartbeatLoop(hbCtx)

	go c.listenOnFeed()

	if err := c.loadHistory(ctx); err != nil {
		return err
	}

	err = c.renderUI()

	if c.sessionToken != "" {
		if derr := c.api.Disconnect(context.Background(), c.sessionToken); derr != nil {
			log.Debug("presence disconnect failed", zap.Error(derr))
		}
	}
	return err
}

// SendText encrypts and sends one text message.
func (c *App) SendText(ctx context.Context, text string) error {
	key, ok := c.session.Key()
	if !ok {
		return fmt.Errorf("no active key for room %s", c.session.RoomID())
	}

	env, err := envelope.Seal(key, []byte(text))
	if err != nil {
		return err
	}
	return c.api.SendMessage(ctx, c.session.RoomID(), c.author, env.Ciphertext, env.IV, false, nil)
}

// SendFile encrypts the file body and its name separately, uploads the body
// blob first, then appends the message referencing it. If the append is
// rejected the server has already discarded the orphaned blob.
func (c *App) SendFile(ctx context.Context, path string) error {
	key, ok := c.session.Key()
	if !ok {
		return fmt.Errorf("no active key for room %s", c.session.RoomID())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	bodyEnv, err := envelope.Seal(key, data)
	if err != nil {
		return err
	}
	nameEnv, err := envelope.Seal(key, []byte(filepath.Base(path)))
	if err != nil {
		return err
	}

	target, err := c.api.GenerateUploadTarget(ctx)
	if err != nil {
		return err
	}
	storageID, err := c.api.Upload(ctx, target, bodyEnv.Ciphertext)
	if err != nil {
		return err
	}

	file := &model.FileRef{
		StorageID: storageID,
		IV:        bodyEnv.IV,
		Type:      mimeTypeFor(path),
	}
	return c.api.SendMessage(ctx, c.session.RoomID(), c.author, nameEnv.Ciphertext, nameEnv.IV, true, file)
}

func (c *App) loadHistory(ctx context.Context) error {
	messages, err := c.api.GetMessages(ctx, c.session.RoomID())
	if err != nil {
		return err
	}

	key, hasKey := c.session.Key()
	if !hasKey {
		return nil
	}
	for _, d := range DecryptBatch(key, messages) {
		c.appendLine(d)
	}
	return nil
}

// listenOnFeed decrypts live messages as they arrive. A failed decrypt
// renders its placeholder and leaves the feed running.
func (c *App) listenOnFeed() {
	for {
		var msg model.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			log.Debug("room feed closed", zap.Error(err))
			return
		}

		key, ok := c.session.Key()
		if !ok {
			continue
		}
		d := decryptOne(key, &msg)
		c.app.QueueUpdateDraw(func() {
			c.appendLine(d)
		})
	}
}

func (c *App) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		tokens, err := c.api.Heartbeat(ctx, c.session.RoomID(), c.sessionID, heartbeatInterval)
		if err != nil {
			// Presence is advisory; messaging never blocks on it.
			log.Debug("heartbeat failed", zap.Error(err))
		} else {
			c.roomToken = tokens.RoomToken
			c.sessionToken = tokens.SessionToken
			c.refreshRoster(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *App) refreshRoster(ctx context.Context) {
	entries, err := c.api.PresenceList(ctx, c.roomToken)
	if err != nil {
		log.Debug("roster fetch failed", zap.Error(err))
		return
	}

	users := make([]string, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.UserID)
	}
	sort.Strings(users)

	c.app.QueueUpdateDraw(func() {
		if c.roster != nil {
			c.roster.SetText(fmt.Sprintf(" online: %s ", strings.Join(users, ", ")))
		}
	})
}

func (c *App) appendLine(d DecodedMessage) {
	switch {
	case d.Failed:
		fmt.Fprintf(c.chatbox, "[red]%s[-]: %s\n", d.Author, d.Text)
	case d.IsFile:
		fmt.Fprintf(c.chatbox, "[yellow]%s[-]: sent file %q (%s)\n", d.Author, d.Text, d.FileType)
	default:
		fmt.Fprintf(c.chatbox, "[green]%s[-]: %s\n", d.Author, d.Text)
	}
	c.chatbox.ScrollToEnd()
}

func (c *App) buildUI() {
	c.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	c.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Room %s ", c.session.RoomID()))

	c.roster = tview.NewTextView().SetDynamicColors(true)

	c.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	c.input.SetBorder(true).SetTitle(" New Message (/file <path> to attach, /quit to leave) ")

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := c.input.GetText()
		if text == "" {
			return
		}
		c.input.SetText("")

		if text == "/quit" {
			c.app.Stop()
			return
		}

		go func(text string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var err error
			if path, ok := strings.CutPrefix(text, "/file "); ok {
				err = c.SendFile(ctx, strings.TrimSpace(path))
			} else {
				err = c.SendText(ctx, text)
			}
			if errors.Is(err, model.ErrRoomNotAvailable) {
				// The room expired under us; nothing left to say here.
				c.app.Stop()
				return
			}
			if err != nil {
				c.app.QueueUpdateDraw(func() {
					fmt.Fprintf(c.chatbox, "[red]send failed: %v[-]\n", err)
				})
			}
		}(text)
	})
}

// blocking function
func (c *App) renderUI() error {
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(c.chatbox, 0, 1, false).
		AddItem(c.roster, 1, 0, false).
		AddItem(c.input, 3, 0, true)

	return c.app.SetRoot(layout, true).Run()
}

func generatePassphrase() (string, error) {
	raw := make([]byte, 18)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate passphrase: %w", model.ErrEnvironment)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".txt", ".md":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
