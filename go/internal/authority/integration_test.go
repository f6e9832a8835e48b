package authority_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/typerace/go/internal/race"
	"github.com/mcdev12/typerace/go/internal/rooms"
)

// TestClientAgainstReferenceAuthority runs the real race client against the
// reference authority end to end: create a room over REST, force-start it
// through the session, type the whole text, and collect the result.
func TestClientAgainstReferenceAuthority(t *testing.T) {
	hs := newTestAuthority(t)
	client := rooms.NewClient(hs.URL, "alice")

	roomID, err := client.CreateRandom(context.Background(), "default")
	require.NoError(t, err)

	session := race.NewSession(context.Background(), race.Config{
		RoomID:    roomID,
		WSBaseURL: "ws" + strings.TrimPrefix(hs.URL, "http"),
		Token:     "alice",
		Starter:   client,
	})
	defer session.Stop()

	require.Eventually(t, func() bool {
		return session.Snapshot().Phase == race.PhaseAwaitingStart
	}, 2*time.Second, 5*time.Millisecond)

	session.RequestForceStart()

	require.Eventually(t, func() bool {
		return session.Snapshot().Phase == race.PhaseRacing
	}, 3*time.Second, 5*time.Millisecond)

	text := session.Snapshot().Text
	require.NotEmpty(t, text)
	for _, r := range text {
		session.SendKeystroke(r)
	}

	require.Eventually(t, func() bool {
		return session.Snapshot().Finished
	}, 3*time.Second, 5*time.Millisecond)

	snap := session.Snapshot()
	assert.Equal(t, race.PhaseFinished, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Zero(t, snap.Result.Mistakes)
	assert.Equal(t, float64(100), snap.Result.Accuracy)
	assert.Equal(t, text, snap.Typed)

	alice := false
	for _, p := range snap.Roster {
		if p.Username == "alice" {
			alice = true
		}
	}
	assert.True(t, alice, "roster broadcasts should have named the participant")

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not tear down after finishing")
	}

	marks := race.Highlight(text, snap.Typed)
	for _, m := range marks {
		assert.Equal(t, race.MarkCorrect, m)
	}
}
