package protocol

// FrameType is the discriminant carried in every wire frame's "type" field.
type FrameType string

const (
	// Client -> authority
	FrameTypeKeystroke FrameType = "Keystroke"

	// Authority -> client
	FrameTypeStart        FrameType = "Start"
	FrameTypeUpdate       FrameType = "Update"
	FrameTypeFinished     FrameType = "Finished"
	FrameTypeError        FrameType = "Error"
	FrameTypeRoomUpdate   FrameType = "RoomUpdate"
	FrameTypeUserLeft     FrameType = "UserLeft"
	FrameTypeUserFinished FrameType = "UserFinished"
)

// Frame is implemented by every wire frame in both directions.
type Frame interface {
	FrameType() FrameType
}

// Keystroke carries one typed character. Timestamp is unix milliseconds on
// the client clock and is non-decreasing within a session.
type Keystroke struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

func (*Keystroke) FrameType() FrameType { return FrameTypeKeystroke }

// Start delivers the race text and the race start time. Current servers send
// StartAt as an absolute unix-millisecond deadline; older servers send
// StartAfter as a relative delay in milliseconds. Zero means "start now".
type Start struct {
	Text       string `json:"text"`
	StartAt    int64  `json:"start_at,omitempty"`
	StartAfter int64  `json:"start_after,omitempty"`
}

func (*Start) FrameType() FrameType { return FrameTypeStart }

// Update is the authoritative scoring state for this participant.
type Update struct {
	Progress float64 `json:"progress"`
	Mistakes int     `json:"mistakes"`
	SpeedWPM float64 `json:"speed_wpm"`
}

func (*Update) FrameType() FrameType { return FrameTypeUpdate }

// Finished is the authoritative final result. It is terminal for the session.
type Finished struct {
	TotalTimeMS int64   `json:"total_time_ms"`
	Mistakes    int     `json:"mistakes"`
	Accuracy    float64 `json:"accuracy"`
	SpeedWPM    float64 `json:"speed_wpm"`
}

func (*Finished) FrameType() FrameType { return FrameTypeFinished }

// ServerError carries a human-readable message. Non-fatal by default.
type ServerError struct {
	Message string `json:"message"`
}

func (*ServerError) FrameType() FrameType { return FrameTypeError }

// ParticipantStatus is a participant's live status within a room.
type ParticipantStatus string

const (
	StatusIdle      ParticipantStatus = "idle"
	StatusStarted   ParticipantStatus = "started"
	StatusDropped   ParticipantStatus = "dropped"
	StatusFinished  ParticipantStatus = "finished"
	StatusSpectator ParticipantStatus = "spectator"
)

// Terminal reports whether the status cannot legally regress to an earlier
// one within the same race.
func (s ParticipantStatus) Terminal() bool {
	return s == StatusDropped || s == StatusFinished
}

// Participant is one entry in a roster broadcast.
type Participant struct {
	Username string            `json:"username"`
	Progress float64           `json:"progress"`
	Mistakes int               `json:"mistakes"`
	Status   ParticipantStatus `json:"status"`
}

// RoomUpdate is a wholesale roster snapshot. It replaces the previous
// roster; it is not a delta.
type RoomUpdate struct {
	Participants []Participant `json:"participants"`
}

func (*RoomUpdate) FrameType() FrameType { return FrameTypeRoomUpdate }

// UserLeft marks a single participant as dropped, independent of snapshot
// cadence.
type UserLeft struct {
	UserID string `json:"user_id"`
}

func (*UserLeft) FrameType() FrameType { return FrameTypeUserLeft }

// UserFinished marks a single participant as finished.
type UserFinished struct {
	UserID string `json:"user_id"`
}

func (*UserFinished) FrameType() FrameType { return FrameTypeUserFinished }
