package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStartAbsolute(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"Start","text":"hello world","start_at":1712345678000}`))
	require.NoError(t, err)

	start, ok := frame.(*Start)
	require.True(t, ok)
	assert.Equal(t, "hello world", start.Text)
	assert.Equal(t, int64(1712345678000), start.StartAt)
	assert.Zero(t, start.StartAfter)
}

func TestDecodeStartLegacyRelative(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"Start","text":"abc","start_after":5000}`))
	require.NoError(t, err)

	start, ok := frame.(*Start)
	require.True(t, ok)
	assert.Equal(t, int64(5000), start.StartAfter)
	assert.Zero(t, start.StartAt)
}

func TestDecodeUpdate(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"Update","progress":42.5,"mistakes":3,"speed_wpm":55.2}`))
	require.NoError(t, err)

	update, ok := frame.(*Update)
	require.True(t, ok)
	assert.Equal(t, 42.5, update.Progress)
	assert.Equal(t, 3, update.Mistakes)
	assert.Equal(t, 55.2, update.SpeedWPM)
}

func TestDecodeRoomUpdate(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"RoomUpdate","participants":[{"username":"alice","progress":10,"mistakes":0,"status":"started"}]}`))
	require.NoError(t, err)

	ru, ok := frame.(*RoomUpdate)
	require.True(t, ok)
	require.Len(t, ru.Participants, 1)
	assert.Equal(t, "alice", ru.Participants[0].Username)
	assert.Equal(t, StatusStarted, ru.Participants[0].Status)
}

func TestDecodeTargetedEvents(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"UserFinished","user_id":"alice"}`))
	require.NoError(t, err)
	uf, ok := frame.(*UserFinished)
	require.True(t, ok)
	assert.Equal(t, "alice", uf.UserID)

	frame, err = Decode([]byte(`{"type":"UserLeft","user_id":"bob"}`))
	require.NoError(t, err)
	ul, ok := frame.(*UserLeft)
	require.True(t, ok)
	assert.Equal(t, "bob", ul.UserID)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Telemetry","foo":1}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"type":"Update","progress":"not a number"}`))
	require.Error(t, err)
}

func TestEncodeKeystrokeWireShape(t *testing.T) {
	data, err := Encode(&Keystroke{Key: "h", Timestamp: 1700000000123})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "Keystroke", m["type"])
	assert.Equal(t, "h", m["key"])
	assert.Equal(t, float64(1700000000123), m["timestamp"])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frames := []Frame{
		&Start{Text: "hello", StartAt: 1000},
		&Update{Progress: 40, Mistakes: 1, SpeedWPM: 30},
		&Finished{TotalTimeMS: 60000, Mistakes: 2, Accuracy: 95.5, SpeedWPM: 72},
		&ServerError{Message: "room full"},
		&RoomUpdate{Participants: []Participant{{Username: "a", Status: StatusIdle}}},
		&UserLeft{UserID: "a"},
		&UserFinished{UserID: "b"},
		&Keystroke{Key: "x", Timestamp: 7},
	}
	for _, f := range frames {
		data, err := Encode(f)
		require.NoError(t, err, "encode %s", f.FrameType())

		decoded, err := Decode(data)
		require.NoError(t, err, "decode %s", f.FrameType())
		assert.Equal(t, f, decoded)
	}
}
