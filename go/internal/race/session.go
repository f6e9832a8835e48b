package race

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typerace/go/internal/protocol"
)

// Starter requests a force-start for a room. Force-start is a REST concern,
// so the session delegates it rather than speaking HTTP itself. The rooms
// client satisfies this interface.
type Starter interface {
	Start(ctx context.Context, roomID string) error
}

// Config holds everything needed to run one race session.
type Config struct {
	RoomID    string
	WSBaseURL string

	// Token authenticates the channel open. It is passed in explicitly;
	// the session never reads credentials from process-wide state.
	Token string

	Conn    ConnConfig
	Clock   clockwork.Clock // nil means the real clock
	Starter Starter         // optional; RequestForceStart is a no-op without it
}

// Snapshot is a read-only projection of session state. Consumers never get
// a mutable handle to the session's internals.
type Snapshot struct {
	Phase Phase

	Text  string
	Typed string

	// Authoritative scoring from the latest Update frame. Before the first
	// Update, Progress carries the local typed/len estimate; every Update
	// overwrites it unconditionally.
	Progress float64
	Mistakes int
	SpeedWPM float64

	CountdownRemaining int // whole seconds

	Finished bool
	Result   *protocol.Finished

	Roster []protocol.Participant

	// Notice is the message of the most recent server Error frame.
	// Transient and non-fatal.
	Notice string
}

type command interface{ isCommand() }

type keystrokeCmd struct{ key rune }
type forceStartCmd struct{}

func (keystrokeCmd) isCommand()  {}
func (forceStartCmd) isCommand() {}

// Session owns the lifecycle of one race from a single participant's
// perspective. All state is mutated by exactly one actor goroutine fed by
// three sources: inbound frames, countdown ticks, and local commands.
type Session struct {
	roomID  string
	conn    *Conn
	clock   clockwork.Clock
	starter Starter

	commands  chan command
	snapshots chan Snapshot
	done      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Actor-owned state. Never touched outside the loop goroutine.
	phase         Phase
	text          string
	typed         []rune
	startSeen     bool
	countdown     *Countdown
	remaining     int
	progress      float64
	mistakes      int
	speed         float64
	authoritative bool
	finished      bool
	result        *protocol.Finished
	roster        *Roster
	notice        string
	lastTS        int64

	snapMu   sync.RWMutex
	lastSnap Snapshot
}

// NewSession creates the session and starts its actor. The session opens
// its channel asynchronously; observe progress through Snapshots.
func NewSession(parent context.Context, cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Conn == (ConnConfig{}) {
		cfg.Conn = DefaultConnConfig()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		roomID:    cfg.RoomID,
		conn:      NewConn(cfg.WSBaseURL, cfg.RoomID, cfg.Token, cfg.Conn),
		clock:     cfg.Clock,
		starter:   cfg.Starter,
		commands:  make(chan command, 64),
		snapshots: make(chan Snapshot, 16),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		phase:     PhaseIdle,
		roster:    NewRoster(),
	}
	s.storeSnapshot()

	go s.loop()
	return s
}

// Snapshot returns the latest session state. Valid at any time, including
// after the session has stopped.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.lastSnap
}

// Snapshots streams state changes. Slow consumers miss intermediate
// snapshots, never the latest one (re-read Snapshot). Closed on teardown.
func (s *Session) Snapshots() <-chan Snapshot { return s.snapshots }

// Done is closed once the actor has exited and the channel is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// SendKeystroke emits one typed character. Fire-and-forget: the keystroke
// is transmitted immediately, unbatched, with no retry and no local
// scoring beyond the optimistic highlight buffer.
func (s *Session) SendKeystroke(key rune) {
	s.enqueue(keystrokeCmd{key: key})
}

// RequestForceStart asks the room-management API to start the race now.
func (s *Session) RequestForceStart() {
	s.enqueue(forceStartCmd{})
}

// Stop tears the session down: the channel closes synchronously and the
// actor stops the countdown on its way out. Idempotent.
func (s *Session) Stop() {
	s.cancel()
	s.conn.Close()
}

func (s *Session) enqueue(cmd command) {
	select {
	case s.commands <- cmd:
	default:
		log.Warn().Str("room_id", s.roomID).Msg("session command queue full, dropping command")
	}
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.teardown()

	s.setPhase(PhaseConnecting)
	s.storeSnapshot()

	if err := s.conn.Open(s.ctx); err != nil {
		log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to open race channel")
		s.setPhase(PhaseError)
		return
	}
	s.setPhase(PhaseAwaitingStart)
	s.storeSnapshot()

	frames := s.conn.Frames()
	events := s.conn.Events()

	for !s.phase.Terminal() {
		var ticks <-chan time.Duration
		if s.countdown != nil {
			ticks = s.countdown.Updates()
		}

		select {
		case <-s.ctx.Done():
			return

		case data, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			s.handleFrame(data)

		case ev := <-events:
			s.handleConnEvent(ev)

		case remaining, ok := <-ticks:
			if !ok {
				s.countdown = nil
				continue
			}
			s.handleTick(remaining)

		case cmd := <-s.commands:
			s.handleCommand(cmd)
		}

		s.storeSnapshot()
	}
}

func (s *Session) handleFrame(data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		// Protocol errors are absorbed here: drop, log, carry on.
		log.Warn().Err(err).Str("room_id", s.roomID).Msg("dropping undecodable frame")
		return
	}

	switch f := frame.(type) {
	case *protocol.Start:
		s.handleStart(f)

	case *protocol.Update:
		s.authoritative = true
		s.progress = f.Progress
		s.mistakes = f.Mistakes
		s.speed = f.SpeedWPM

	case *protocol.Finished:
		if s.phase != PhaseRacing {
			log.Debug().Str("room_id", s.roomID).Str("phase", string(s.phase)).
				Msg("ignoring Finished outside racing phase")
			return
		}
		s.finished = true
		s.result = f
		s.mistakes = f.Mistakes
		s.speed = f.SpeedWPM
		s.setPhase(PhaseFinished)

	case *protocol.ServerError:
		s.notice = f.Message
		log.Warn().Str("room_id", s.roomID).Str("message", f.Message).Msg("server error frame")

	case *protocol.RoomUpdate:
		s.roster.ApplySnapshot(f.Participants)

	case *protocol.UserLeft:
		s.roster.SetStatus(f.UserID, protocol.StatusDropped)

	case *protocol.UserFinished:
		s.roster.SetStatus(f.UserID, protocol.StatusFinished)

	default:
		log.Debug().Str("room_id", s.roomID).Str("frame", string(frame.FrameType())).
			Msg("ignoring client-bound frame from authority")
	}
}

func (s *Session) handleStart(f *protocol.Start) {
	if s.startSeen {
		// Text and start time are set once per session; later Start frames
		// change nothing.
		log.Debug().Str("room_id", s.roomID).Msg("ignoring duplicate Start frame")
		return
	}
	if s.phase != PhaseAwaitingStart {
		return
	}
	s.startSeen = true
	s.text = f.Text

	// Normalize to an absolute deadline on receipt; the legacy relative
	// form is anchored to the clock now so countdown math never drifts.
	now := s.clock.Now()
	var deadline time.Time
	switch {
	case f.StartAfter > 0:
		deadline = now.Add(time.Duration(f.StartAfter) * time.Millisecond)
	case f.StartAt > 0:
		deadline = time.UnixMilli(f.StartAt)
	}

	if deadline.After(now) {
		s.remaining = WholeSeconds(deadline.Sub(now))
		s.countdown = NewCountdown(s.clock, deadline)
		s.setPhase(PhaseCountdown)
	} else {
		s.setPhase(PhaseRacing)
	}
}

func (s *Session) handleTick(remaining time.Duration) {
	s.remaining = WholeSeconds(remaining)
	if remaining == 0 && s.phase == PhaseCountdown {
		s.countdown.Stop()
		s.countdown = nil
		s.setPhase(PhaseRacing)
	}
}

func (s *Session) handleConnEvent(ev ConnEvent) {
	switch ev {
	case EventConnected:
		// Already reflected by the phase transition after Open.
	case EventDisconnected:
		s.setPhase(PhaseDisconnected)
	case EventTransportError:
		s.setPhase(PhaseError)
	}
}

func (s *Session) handleCommand(cmd command) {
	switch c := cmd.(type) {
	case keystrokeCmd:
		if s.phase != PhaseRacing {
			log.Debug().Str("room_id", s.roomID).Str("phase", string(s.phase)).
				Msg("ignoring keystroke outside racing phase")
			return
		}
		s.typed = append(s.typed, c.key)

		ts := s.clock.Now().UnixMilli()
		if ts < s.lastTS {
			ts = s.lastTS
		}
		s.lastTS = ts
		s.conn.Send(&protocol.Keystroke{Key: string(c.key), Timestamp: ts})

		if !s.authoritative {
			if n := len([]rune(s.text)); n > 0 {
				est := float64(len(s.typed)) / float64(n) * 100
				if est > 100 {
					est = 100
				}
				s.progress = est
			}
		}

	case forceStartCmd:
		if s.starter == nil {
			log.Debug().Str("room_id", s.roomID).Msg("force start requested but no starter configured")
			return
		}
		go func() {
			if err := s.starter.Start(s.ctx, s.roomID); err != nil {
				log.Warn().Err(err).Str("room_id", s.roomID).Msg("force start request failed")
			}
		}()
	}
}

func (s *Session) setPhase(next Phase) {
	if s.phase == next {
		return
	}
	log.Debug().Str("room_id", s.roomID).
		Str("from", string(s.phase)).Str("to", string(next)).
		Msg("session phase transition")
	s.phase = next
}

func (s *Session) teardown() {
	s.conn.Close()
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	s.storeSnapshot()
	close(s.snapshots)
}

func (s *Session) storeSnapshot() {
	snap := Snapshot{
		Phase:              s.phase,
		Text:               s.text,
		Typed:              string(s.typed),
		Progress:           s.progress,
		Mistakes:           s.mistakes,
		SpeedWPM:           s.speed,
		CountdownRemaining: s.remaining,
		Finished:           s.finished,
		Result:             s.result,
		Roster:             s.roster.Participants(),
		Notice:             s.notice,
	}

	s.snapMu.Lock()
	s.lastSnap = snap
	s.snapMu.Unlock()

	select {
	case s.snapshots <- snap:
	default:
	}
}
