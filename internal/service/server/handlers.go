package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/service/chat"
	"github.com/Teachmetech/ChatSeal/internal/service/presence"
	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

// maxUploadBytes bounds a single encrypted file push.
const maxUploadBytes = 32 << 20

type (
	createRoomRequest struct {
		Name               string `json:"name,omitempty"`
		PassphraseRequired bool   `json:"passphraseRequired"`
		TTLMillis          int64  `json:"ttlMillis"`
		Salt               []byte `json:"salt,omitempty"`
	}

	createRoomResponse struct {
		RoomID string `json:"roomId"`
	}

	sendMessageRequest struct {
		Author  string         `json:"author"`
		Content []byte         `json:"content"`
		IV      []byte         `json:"iv"`
		IsFile  bool           `json:"isFile"`
		File    *model.FileRef `json:"file,omitempty"`
	}

	clearMessagesResponse struct {
		MessagesDeleted int      `json:"messagesDeleted"`
		BlobsDeleted    int      `json:"blobsDeleted"`
		FailedBlobs     []string `json:"failedBlobs,omitempty"`
		FailedMessages  []string `json:"failedMessages,omitempty"`
	}

	heartbeatRequest struct {
		RoomID         string `json:"roomId"`
		UserID         string `json:"userId"`
		SessionID      string `json:"sessionId"`
		IntervalMillis int64  `json:"intervalMillis"`
	}
)

func (s *HttpServer) HandleCreateRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		roomID, err := s.chatService.CreateRoom(r.Context(), req.Name,
			req.PassphraseRequired, time.Duration(req.TTLMillis)*time.Millisecond, req.Salt)
		if err != nil {
			log.Error("create room failed", zap.Error(err))
			http.Error(w, "create room failed", http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: roomID})
	}
}

func (s *HttpServer) HandleGetRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomID"]

		room, err := s.chatService.GetRoom(r.Context(), roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func (s *HttpServer) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomID"]

		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		msg, err := s.chatService.SendMessage(r.Context(), roomID,
			req.Author, req.Content, req.IV, req.IsFile, req.File)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *HttpServer) HandleGetMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomID"]

		messages, err := s.chatService.GetMessages(r.Context(), roomID)
		if err != nil {
			log.Error("list messages failed", zap.String("roomID", roomID), zap.Error(err))
			http.Error(w, "list messages failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

func (s *HttpServer) HandleClearMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomID"]

		report, err := s.chatService.ClearAllMessages(r.Context(), roomID)
		if err != nil {
			log.Error("clear messages failed", zap.String("roomID", roomID), zap.Error(err))
			http.Error(w, "clear messages failed", http.StatusInternalServerError)
			return
		}

		resp := clearMessagesResponse{
			MessagesDeleted: report.MessagesDeleted,
			BlobsDeleted:    report.BlobsDeleted,
		}
		for _, f := range report.Failures {
			resp.FailedBlobs = append(resp.FailedBlobs, f.BlobID)
		}
		for _, f := range report.MessageFailures {
			resp.FailedMessages = append(resp.FailedMessages, f.MessageID)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *HttpServer) HandleGenerateUploadTarget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := s.chatService.GenerateUploadTarget(r.Context())
		if err != nil {
			log.Error("generate upload target failed", zap.Error(err))
			http.Error(w, "generate upload target failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, target)
	}
}

func (s *HttpServer) HandleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploadID := mux.Vars(r)["uploadID"]

		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		if len(data) > maxUploadBytes {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}

		if err := s.chatService.AcceptUpload(r.Context(), uploadID, data); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func (s *HttpServer) HandleGetBlob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blobID := mux.Vars(r)["blobID"]

		data, err := s.chatService.GetBlob(r.Context(), blobID)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func (s *HttpServer) HandleHeartbeat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := s.presenceClient(w, r)
		if !ok {
			return
		}

		var req heartbeatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		tokens, err := client.Heartbeat(r.Context(), req.RoomID, req.UserID,
			req.SessionID, time.Duration(req.IntervalMillis)*time.Millisecond)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	}
}

func (s *HttpServer) HandlePresenceList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := s.presenceClient(w, r)
		if !ok {
			return
		}

		roster, err := client.List(r.Context(), mux.Vars(r)["roomToken"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roster)
	}
}

func (s *HttpServer) HandleDisconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := s.presenceClient(w, r)
		if !ok {
			return
		}

		if err := client.Disconnect(r.Context(), mux.Vars(r)["sessionToken"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// presenceClient gates presence operations on the caller's pseudonymous
// identity header. No identity, no handle.
func (s *HttpServer) presenceClient(w http.ResponseWriter, r *http.Request) (*presence.Client, bool) {
	client, err := presence.NewClient(r.Header.Get("X-Identity"), s.presenceStore)
	if err != nil {
		http.Error(w, "identity required", http.StatusUnauthorized)
		return nil, false
	}
	return client, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("marshal response failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	var uploadErr *chat.UploadTargetError
	switch {
	case errors.Is(err, model.ErrRoomNotAvailable):
		http.Error(w, "room does not exist or has expired", http.StatusNotFound)
	case errors.Is(err, model.ErrNotAuthorized):
		http.Error(w, "not authorized", http.StatusForbidden)
	case errors.As(err, &uploadErr):
		http.Error(w, "upload target is not valid", http.StatusConflict)
	case errors.Is(err, chat.ErrBlobNotFound):
		http.Error(w, "blob not found", http.StatusNotFound)
	default:
		log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
