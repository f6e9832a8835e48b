// Package authority is an in-memory reference implementation of the race
// authority: the room-management REST API plus the per-room WebSocket
// channel that streams Start/Update/Finished and roster frames. It exists
// so the client core has a real peer for integration tests and local
// development; nothing here persists across restarts.
package authority

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typerace/go/internal/protocol"
)

// Config holds tuning for the reference authority.
type Config struct {
	Countdown      time.Duration // delay between Start broadcast and race start
	TextWords      int
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

func DefaultConfig() Config {
	return Config{
		Countdown:      3 * time.Second,
		TextWords:      defaultTextWords,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1024,
	}
}

// Server owns the room registry and the HTTP surface.
type Server struct {
	config   Config
	clock    clockwork.Clock
	upgrader websocket.Upgrader

	ctx context.Context

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewServer(ctx context.Context, clock clockwork.Clock, config Config) *Server {
	return &Server{
		config: config,
		clock:  clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ctx:   ctx,
		rooms: make(map[string]*Room),
	}
}

// Routes builds the full HTTP surface: room management, the per-room
// channel endpoint, health, and metrics.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/rooms", s.handleListRooms)
	r.Post("/dictionaries/{dictionaryID}/create-random-room", s.handleCreateRoom)
	r.Post("/rooms/{roomID}/start", s.handleStartRoom)
	r.Get("/ws/{roomID}", s.handleChannel)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Rooms []RoomInfo `json:"rooms"`
	}{Rooms: infos})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	dictionaryID := chi.URLParam(r, "dictionaryID")
	roomID := uuid.NewString()

	room := NewRoom(s.ctx, roomID, randomText(dictionaryID, s.config.TextWords), s.clock, s.config.Countdown)

	s.mu.Lock()
	s.rooms[roomID] = room
	s.mu.Unlock()
	activeRooms.Inc()

	log.Info().Str("room_id", roomID).Str("dictionary", dictionaryID).Msg("room created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(struct {
		RoomID string `json:"room_id"`
	}{RoomID: roomID})
}

func (s *Server) handleStartRoom(w http.ResponseWriter, r *http.Request) {
	room := s.room(chi.URLParam(r, "roomID"))
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	room.Inbox() <- forceStartRoom{}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	room := s.room(chi.URLParam(r, "roomID"))
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	username := usernameFromRequest(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade race channel")
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	p := &player{
		id:       uuid.NewString(),
		username: username,
		send:     make(chan []byte, 32),
	}
	room.Inbox() <- joinRoom{p: p}

	go s.writePump(conn, p)
	s.readLoop(conn, room, p)
}

// writePump drains the player's send channel onto the socket. The room
// closes the channel on leave or shutdown, which closes the socket.
func (s *Server) writePump(conn *websocket.Conn, p *player) {
	for data := range p.send {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Str("player", p.username).Msg("race channel write failed")
			break
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
}

func (s *Server) readLoop(conn *websocket.Conn, room *Room, p *player) {
	defer func() {
		room.Inbox() <- leaveRoom{playerID: p.id}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("player", p.username).Msg("dropping undecodable frame")
			continue
		}
		ks, ok := frame.(*protocol.Keystroke)
		if !ok {
			log.Warn().Str("player", p.username).Str("frame", string(frame.FrameType())).
				Msg("dropping unexpected inbound frame")
			continue
		}
		room.Inbox() <- keystrokeMsg{playerID: p.id, key: ks.Key}
	}
}

func (s *Server) room(id string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

// usernameFromRequest derives the participant identity from the bearer
// token, falling back to a token query parameter for clients that cannot
// set headers. The reference authority treats the token as the username.
func usernameFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if token := strings.TrimPrefix(auth, "Bearer "); token != "" {
			return token
		}
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return "anonymous-" + uuid.NewString()[:8]
}
