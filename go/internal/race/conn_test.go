package race

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typerace/go/internal/protocol"
)

func TestConnSendBeforeOpenIsNoop(t *testing.T) {
	c := NewConn("ws://127.0.0.1:1", "room", "token", DefaultConnConfig())
	// Must not panic and must not block.
	c.Send(&protocol.Keystroke{Key: "a", Timestamp: 1})
	c.Close()
}

func TestConnOpenFailureEmitsTransportError(t *testing.T) {
	c := NewConn("ws://127.0.0.1:1", "room", "token", DefaultConnConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Open(ctx)
	require.Error(t, err)

	select {
	case ev := <-c.Events():
		assert.Equal(t, EventTransportError, ev)
	case <-time.After(time.Second):
		t.Fatal("expected a transport error event")
	}
}

func TestConnOpenSendClose(t *testing.T) {
	wsBase, conns := newAuthorityStub(t)
	c := NewConn(wsBase, "room-9", "alice", DefaultConnConfig())

	require.NoError(t, c.Open(context.Background()))
	server := acceptConn(t, conns)

	select {
	case ev := <-c.Events():
		assert.Equal(t, EventConnected, ev)
	case <-time.After(time.Second):
		t.Fatal("expected a connected event")
	}

	c.Send(&protocol.Keystroke{Key: "z", Timestamp: 42})
	ks, ok := readFrame(t, server).(*protocol.Keystroke)
	require.True(t, ok)
	assert.Equal(t, "z", ks.Key)

	c.Close()
	c.Close() // idempotent

	// Send after close drops the frame without panicking.
	c.Send(&protocol.Keystroke{Key: "q", Timestamp: 43})

	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := server.ReadMessage()
	assert.Error(t, err)
}

func TestConnRoomScopedURL(t *testing.T) {
	c := NewConn("ws://example.test", "abc123", "tok", DefaultConnConfig())
	assert.Equal(t, "ws://example.test/ws/abc123", c.url)
}

func TestConnSendsBearerToken(t *testing.T) {
	headers := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	c := NewConn("ws"+strings.TrimPrefix(srv.URL, "http"), "room", "secret-token", DefaultConnConfig())
	require.NoError(t, c.Open(context.Background()))
	t.Cleanup(c.Close)

	select {
	case h := <-headers:
		assert.Equal(t, "Bearer secret-token", h)
	case <-time.After(time.Second):
		t.Fatal("handshake never reached the server")
	}
}
