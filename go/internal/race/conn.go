package race

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typerace/go/internal/protocol"
)

// ConnEvent is a transport lifecycle signal. Events are consumed only by
// the session actor.
type ConnEvent int

const (
	EventConnected ConnEvent = iota
	EventDisconnected
	EventTransportError
)

func (e ConnEvent) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventTransportError:
		return "transport_error"
	}
	return "unknown"
}

// ConnConfig holds transport tuning for one race connection.
type ConnConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
}

// DefaultConnConfig returns the transport defaults.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// Conn owns exactly one WebSocket channel for one race session. The token
// authenticating the dial is an explicit constructor argument so session
// lifetime and credential lifetime stay decoupled.
type Conn struct {
	url    string
	token  string
	config ConnConfig

	mu sync.Mutex
	ws *websocket.Conn

	frames chan []byte
	events chan ConnEvent

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn builds an unopened connection for the given room. The channel
// endpoint is scoped per room: {wsBaseURL}/ws/{roomID}.
func NewConn(wsBaseURL, roomID, token string, config ConnConfig) *Conn {
	return &Conn{
		url:    fmt.Sprintf("%s/ws/%s", wsBaseURL, roomID),
		token:  token,
		config: config,
		frames: make(chan []byte, 64),
		events: make(chan ConnEvent, 8),
		closed: make(chan struct{}),
	}
}

// Open dials the channel and starts the read pump. A failed dial leaves the
// connection unusable; there is no retry.
func (c *Conn) Open(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	ws, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		c.emit(EventTransportError)
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	ws.SetReadLimit(c.config.MaxMessageSize)

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	c.emit(EventConnected)
	go c.readPump()

	log.Debug().Str("url", c.url).Msg("race channel open")
	return nil
}

// Frames returns raw inbound payloads. The channel is closed when the read
// pump exits.
func (c *Conn) Frames() <-chan []byte { return c.frames }

// Events returns transport lifecycle signals.
func (c *Conn) Events() <-chan ConnEvent { return c.events }

// Send encodes and transmits one frame. If the channel is not open the
// frame is dropped with a log line; there is no outbound queue.
func (c *Conn) Send(f protocol.Frame) {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	if ws == nil || c.isClosed() {
		log.Debug().Str("frame", string(f.FrameType())).Msg("send on closed channel, dropping frame")
		return
	}

	data, err := protocol.Encode(f)
	if err != nil {
		log.Error().Err(err).Str("frame", string(f.FrameType())).Msg("encode outbound frame")
		return
	}

	_ = ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Str("frame", string(f.FrameType())).Msg("write outbound frame")
	}
}

// Close tears the channel down. Safe to call multiple times and from any
// goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = ws.Close()
		}
	})
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) readPump() {
	defer close(c.frames)

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Str("url", c.url).Msg("race channel closed by peer")
				c.emit(EventDisconnected)
			} else {
				log.Warn().Err(err).Str("url", c.url).Msg("race channel read failed")
				c.emit(EventTransportError)
			}
			return
		}

		select {
		case c.frames <- data:
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) emit(ev ConnEvent) {
	select {
	case c.events <- ev:
	default:
		log.Warn().Stringer("event", ev).Msg("connection event channel full, dropping event")
	}
}
