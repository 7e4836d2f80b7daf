package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/service/chat"
	"github.com/Teachmetech/ChatSeal/internal/service/presence"
)

// API is the client's HTTP surface to the chat server.
type API struct {
	baseURL  string
	identity string
	http     *http.Client
}

func NewAPI(baseURL, identity string) *API {
	return &API{
		baseURL:  strings.TrimRight(baseURL, "/"),
		identity: identity,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *API) CreateRoom(ctx context.Context, name string, passphraseRequired bool, ttl time.Duration, salt []byte) (string, error) {
	body := map[string]any{
		"name":               name,
		"passphraseRequired": passphraseRequired,
		"ttlMillis":          ttl.Milliseconds(),
		"salt":               salt,
	}
	var resp struct {
		RoomID string `json:"roomId"`
	}
	if err := a.doJSON(ctx, http.MethodPost, "/rooms", body, &resp); err != nil {
		return "", err
	}
	return resp.RoomID, nil
}

func (a *API) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	if err := a.doJSON(ctx, http.MethodGet, "/rooms/"+roomID, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (a *API) GetMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	var messages []model.Message
	if err := a.doJSON(ctx, http.MethodGet, "/rooms/"+roomID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (a *API) SendMessage(ctx context.Context, roomID, author string, content, iv []byte, isFile bool, file *model.FileRef) error {
	body := map[string]any{
		"author":  author,
		"content": content,
		"iv":      iv,
		"isFile":  isFile,
	}
	if file != nil {
		body["file"] = file
	}
	return a.doJSON(ctx, http.MethodPost, "/rooms/"+roomID+"/messages", body, nil)
}

func (a *API) GenerateUploadTarget(ctx context.Context) (*chat.UploadTarget, error) {
	var target chat.UploadTarget
	if err := a.doJSON(ctx, http.MethodPost, "/uploads", struct{}{}, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// Upload pushes encrypted bytes to a one-time target and returns the blob's
// storage id.
func (a *API) Upload(ctx context.Context, target *chat.UploadTarget, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		a.baseURL+"/uploads/"+target.ID, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", &model.BlobError{Op: "upload", BlobID: target.ID, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", &model.BlobError{Op: "upload", BlobID: target.ID,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return target.ID, nil
}

func (a *API) FetchBlob(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &model.BlobError{Op: "retrieve", BlobID: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &model.BlobError{Op: "retrieve", BlobID: url,
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

func (a *API) Heartbeat(ctx context.Context, roomID, sessionID string, interval time.Duration) (*presence.Tokens, error) {
	body := map[string]any{
		"roomId":         roomID,
		"userId":         a.identity,
		"sessionId":      sessionID,
		"intervalMillis": interval.Milliseconds(),
	}
	var tokens presence.Tokens
	if err := a.doJSON(ctx, http.MethodPost, "/presence/heartbeat", body, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (a *API) PresenceList(ctx context.Context, roomToken string) ([]presence.Entry, error) {
	var roster []presence.Entry
	if err := a.doJSON(ctx, http.MethodGet, "/presence/rooms/"+roomToken, nil, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

func (a *API) Disconnect(ctx context.Context, sessionToken string) error {
	return a.doJSON(ctx, http.MethodDelete, "/presence/sessions/"+sessionToken, nil, nil)
}

// Subscribe opens the room's websocket feed of newly appended messages.
func (a *API) Subscribe(roomID string) (*websocket.Conn, error) {
	wsURL := strings.Replace(a.baseURL, "http", "ws", 1) + "/rooms/" + roomID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	return conn, err
}

func (a *API) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.identity != "" {
		req.Header.Set("X-Identity", a.identity)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return model.ErrRoomNotAvailable
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return model.ErrNotAuthorized
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
