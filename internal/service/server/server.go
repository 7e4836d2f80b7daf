package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/service/chat"
	"github.com/Teachmetech/ChatSeal/internal/service/presence"
	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

type (
	HttpServer struct {
		chatService   *chat.Service
		presenceStore presence.Store
		hub           *Hub
		addr          string
	}
)

func NewHttpServer(addr string, chatService *chat.Service, presenceStore presence.Store) *HttpServer {
	s := &HttpServer{
		chatService:   chatService,
		presenceStore: presenceStore,
		hub:           NewHub(),
		addr:          addr,
	}
	chatService.SetNotifier(s.hub.Broadcast)
	return s
}

// Router builds the full route table. Exposed separately from Run so tests
// can drive it through httptest.
func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/rooms", s.HandleCreateRoom()).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomID}", s.HandleGetRoom()).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomID}/messages", s.HandleSendMessage()).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{roomID}/messages", s.HandleGetMessages()).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{roomID}/messages", s.HandleClearMessages()).Methods(http.MethodDelete)
	r.HandleFunc("/rooms/{roomID}/ws", s.HandleRoomWS()).Methods(http.MethodGet)

	r.HandleFunc("/uploads", s.HandleGenerateUploadTarget()).Methods(http.MethodPost)
	r.HandleFunc("/uploads/{uploadID}", s.HandleUpload()).Methods(http.MethodPut)
	r.HandleFunc("/blobs/{blobID}", s.HandleGetBlob()).Methods(http.MethodGet)

	r.HandleFunc("/presence/heartbeat", s.HandleHeartbeat()).Methods(http.MethodPost)
	r.HandleFunc("/presence/rooms/{roomToken}", s.HandlePresenceList()).Methods(http.MethodGet)
	r.HandleFunc("/presence/sessions/{sessionToken}", s.HandleDisconnect()).Methods(http.MethodDelete)

	return r
}

func (s *HttpServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}()

	log.Info("http server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
