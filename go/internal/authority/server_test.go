package authority_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typerace/go/internal/authority"
	"github.com/mcdev12/typerace/go/internal/protocol"
	"github.com/mcdev12/typerace/go/internal/rooms"
)

func newTestAuthority(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	config := authority.DefaultConfig()
	config.Countdown = 0 // races start the moment they are force-started
	config.TextWords = 3

	server := authority.NewServer(ctx, clockwork.NewRealClock(), config)
	hs := httptest.NewServer(server.Routes())
	t.Cleanup(hs.Close)
	return hs
}

func dialRoom(t *testing.T, hs *httptest.Server, roomID, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws/" + roomID
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitFrame reads frames until one of the wanted type arrives, skipping
// roster chatter along the way.
func waitFrame(t *testing.T, conn *websocket.Conn, want protocol.FrameType) protocol.Frame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s frame", want)

		frame, err := protocol.Decode(data)
		require.NoError(t, err)
		if frame.FrameType() == want {
			return frame
		}
	}
}

func sendKeystroke(t *testing.T, conn *websocket.Conn, key rune) {
	t.Helper()
	data, err := protocol.Encode(&protocol.Keystroke{Key: string(key), Timestamp: time.Now().UnixMilli()})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestAuthorityRaceEndToEnd(t *testing.T) {
	hs := newTestAuthority(t)
	client := rooms.NewClient(hs.URL, "")

	roomID, err := client.CreateRandom(context.Background(), "default")
	require.NoError(t, err)

	alice := dialRoom(t, hs, roomID, "alice")
	bob := dialRoom(t, hs, roomID, "bob")

	require.NoError(t, client.Start(context.Background(), roomID))

	start := waitFrame(t, alice, protocol.FrameTypeStart).(*protocol.Start)
	require.NotEmpty(t, start.Text)
	waitFrame(t, bob, protocol.FrameTypeStart)

	for _, r := range start.Text {
		sendKeystroke(t, alice, r)
	}

	// Every keystroke yields an authoritative Update; the last one lands
	// at 100%, followed by the terminal result.
	var lastUpdate *protocol.Update
	var finished *protocol.Finished
	deadline := time.Now().Add(3 * time.Second)
	for finished == nil {
		require.NoError(t, alice.SetReadDeadline(deadline))
		_, data, err := alice.ReadMessage()
		require.NoError(t, err)
		frame, err := protocol.Decode(data)
		require.NoError(t, err)

		switch f := frame.(type) {
		case *protocol.Update:
			lastUpdate = f
		case *protocol.Finished:
			finished = f
		}
	}

	require.NotNil(t, lastUpdate)
	assert.Equal(t, float64(100), lastUpdate.Progress)
	assert.Zero(t, finished.Mistakes)
	assert.Equal(t, float64(100), finished.Accuracy)

	uf := waitFrame(t, bob, protocol.FrameTypeUserFinished).(*protocol.UserFinished)
	assert.Equal(t, "alice", uf.UserID)
}

func TestAuthorityRoomListing(t *testing.T) {
	hs := newTestAuthority(t)
	client := rooms.NewClient(hs.URL, "")

	first, err := client.CreateRandom(context.Background(), "default")
	require.NoError(t, err)
	_, err = client.CreateRandom(context.Background(), "code")
	require.NoError(t, err)

	list, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, room := range list {
		assert.False(t, room.Started)
	}

	require.NoError(t, client.Start(context.Background(), first))
	require.Eventually(t, func() bool {
		list, err := client.List(context.Background())
		if err != nil {
			return false
		}
		for _, room := range list {
			if room.RoomID == first && room.Started {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAuthorityRejectsKeystrokeBeforeStart(t *testing.T) {
	hs := newTestAuthority(t)
	client := rooms.NewClient(hs.URL, "")

	roomID, err := client.CreateRandom(context.Background(), "default")
	require.NoError(t, err)

	conn := dialRoom(t, hs, roomID, "alice")
	sendKeystroke(t, conn, 'a')

	errFrame := waitFrame(t, conn, protocol.FrameTypeError).(*protocol.ServerError)
	assert.Contains(t, errFrame.Message, "not started")
}

func TestAuthorityUnknownRoom(t *testing.T) {
	hs := newTestAuthority(t)
	client := rooms.NewClient(hs.URL, "")

	err := client.Start(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
