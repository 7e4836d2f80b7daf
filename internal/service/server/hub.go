package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/model"
	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

// Hub fans appended messages out to the websocket subscribers of each room.
// Ciphertext goes out exactly as stored; the hub never holds a key.
//
// The hub mutex guards only the registry. Network writes happen outside it,
// serialized per connection by subscriber.mu because gorilla connections
// allow only one concurrent writer; a stalled subscriber therefore delays
// nobody but itself.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]*subscriber
}

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]*subscriber)}
}

func (h *Hub) add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*websocket.Conn]*subscriber)
	}
	h.rooms[roomID][conn] = &subscriber{conn: conn}
}

func (h *Hub) remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], conn)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast pushes a newly appended message to every subscriber of its
// room. The roster is snapshotted under the lock and written to afterwards.
// A dead connection is dropped; delivery is best effort, the store is the
// source of truth.
func (h *Hub) Broadcast(msg *model.Message) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.rooms[msg.RoomID]))
	for _, sub := range h.rooms[msg.RoomID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.writeJSON(msg); err != nil {
			log.Debug("dropping dead subscriber", zap.Error(err))
			h.remove(msg.RoomID, sub.conn)
			sub.conn.Close()
		}
	}
}

func (s *HttpServer) HandleRoomWS() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomID"]

		// Subscribing to a dead room is refused outright.
		if _, err := s.chatService.GetRoom(r.Context(), roomID); err != nil {
			writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		s.hub.add(roomID, conn)
		go s.drainWS(roomID, conn)
	}
}

// drainWS keeps the connection's read side alive and unregisters on close.
func (s *HttpServer) drainWS(roomID string, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Debug("room subscriber closed", zap.Error(err))
			s.hub.remove(roomID, conn)
			conn.Close()
			return
		}
	}
}
