package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks a frame whose discriminant is not part of the
// protocol. Callers drop such frames; they are never fatal.
var ErrUnknownType = errors.New("unknown frame type")

type envelope struct {
	Type FrameType `json:"type"`
}

// Decode parses one wire frame. It returns ErrUnknownType (wrapped) for an
// unrecognized discriminant and a json error for malformed payloads. It
// never panics and has no side effects.
func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}

	var frame Frame
	switch env.Type {
	case FrameTypeKeystroke:
		frame = &Keystroke{}
	case FrameTypeStart:
		frame = &Start{}
	case FrameTypeUpdate:
		frame = &Update{}
	case FrameTypeFinished:
		frame = &Finished{}
	case FrameTypeError:
		frame = &ServerError{}
	case FrameTypeRoomUpdate:
		frame = &RoomUpdate{}
	case FrameTypeUserLeft:
		frame = &UserLeft{}
	case FrameTypeUserFinished:
		frame = &UserFinished{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, frame); err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", env.Type, err)
	}
	return frame, nil
}

// Encode serializes a frame with its discriminant spliced into the flat
// JSON object, matching the wire format in both directions.
func Encode(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case *Keystroke:
		return marshalFlat(FrameTypeKeystroke, v)
	case *Start:
		return marshalFlat(FrameTypeStart, v)
	case *Update:
		return marshalFlat(FrameTypeUpdate, v)
	case *Finished:
		return marshalFlat(FrameTypeFinished, v)
	case *ServerError:
		return marshalFlat(FrameTypeError, v)
	case *RoomUpdate:
		return marshalFlat(FrameTypeRoomUpdate, v)
	case *UserLeft:
		return marshalFlat(FrameTypeUserLeft, v)
	case *UserFinished:
		return marshalFlat(FrameTypeUserFinished, v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, f)
	}
}

// marshalFlat marshals the payload struct and splices the discriminant in
// as the first key, keeping the frame a single flat JSON object.
func marshalFlat(t FrameType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", t, err)
	}
	if len(body) == 2 { // "{}"
		return []byte(fmt.Sprintf(`{"type":%q}`, t)), nil
	}
	head := fmt.Sprintf(`{"type":%q,`, t)
	return append([]byte(head), body[1:]...), nil
}
