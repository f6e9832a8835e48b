package authority

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typerace/go/internal/protocol"
)

type roomMsg interface{ isRoomMsg() }

type joinRoom struct{ p *player }
type leaveRoom struct{ playerID string }
type keystrokeMsg struct {
	playerID string
	key      string
}
type forceStartRoom struct{}
type roomInfoReq struct{ reply chan RoomInfo }

func (joinRoom) isRoomMsg()       {}
func (leaveRoom) isRoomMsg()      {}
func (keystrokeMsg) isRoomMsg()   {}
func (forceStartRoom) isRoomMsg() {}
func (roomInfoReq) isRoomMsg()    {}

// RoomInfo is the room-listing view.
type RoomInfo struct {
	RoomID  string `json:"room_id"`
	Players int    `json:"players"`
	Started bool   `json:"started"`
}

type player struct {
	id       string
	username string
	send     chan []byte
	score    score
	finished bool
	status   protocol.ParticipantStatus
}

// Room is one race room. A single actor goroutine owns all room state;
// connections talk to it exclusively through the inbox.
type Room struct {
	id        string
	text      []rune
	clock     clockwork.Clock
	countdown time.Duration

	inbox   chan roomMsg
	players map[string]*player
	started bool
	startAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRoom creates a room with the given target text and starts its actor.
func NewRoom(parent context.Context, id, text string, clock clockwork.Clock, countdown time.Duration) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:        id,
		text:      []rune(text),
		clock:     clock,
		countdown: countdown,
		inbox:     make(chan roomMsg, 64),
		players:   make(map[string]*player),
		ctx:       ctx,
		cancel:    cancel,
	}
	go r.loop()
	return r
}

// Inbox exposes the actor mailbox to the connection layer.
func (r *Room) Inbox() chan<- roomMsg { return r.inbox }

// Info answers a synchronous room-listing query.
func (r *Room) Info() RoomInfo {
	reply := make(chan RoomInfo, 1)
	select {
	case r.inbox <- roomInfoReq{reply: reply}:
		select {
		case info := <-reply:
			return info
		case <-r.ctx.Done():
		}
	case <-r.ctx.Done():
	}
	return RoomInfo{RoomID: r.id}
}

func (r *Room) loop() {
	rosterTicker := r.clock.NewTicker(time.Second)
	defer rosterTicker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-rosterTicker.Chan():
			if r.started && len(r.players) > 0 {
				r.broadcastRoster()
			}

		case m := <-r.inbox:
			switch msg := m.(type) {
			case joinRoom:
				r.players[msg.p.id] = msg.p
				msg.p.status = protocol.StatusIdle
				if r.started {
					// Late joiners race whatever time is left.
					msg.p.status = protocol.StatusStarted
					r.sendTo(msg.p, &protocol.Start{
						Text:    string(r.text),
						StartAt: r.startAt.UnixMilli(),
					})
				}
				r.broadcastRoster()

			case leaveRoom:
				p, ok := r.players[msg.playerID]
				if !ok {
					break
				}
				delete(r.players, msg.playerID)
				close(p.send)
				r.broadcast(&protocol.UserLeft{UserID: p.username})

			case keystrokeMsg:
				r.handleKeystroke(msg)

			case forceStartRoom:
				r.handleForceStart()

			case roomInfoReq:
				msg.reply <- RoomInfo{RoomID: r.id, Players: len(r.players), Started: r.started}
			}
		}
	}
}

func (r *Room) handleForceStart() {
	if r.started {
		return
	}
	r.started = true
	r.startAt = r.clock.Now().Add(r.countdown)
	racesStartedTotal.Inc()

	for _, p := range r.players {
		p.status = protocol.StatusStarted
	}
	r.broadcast(&protocol.Start{
		Text:    string(r.text),
		StartAt: r.startAt.UnixMilli(),
	})
	r.broadcastRoster()

	log.Info().Str("room_id", r.id).Time("start_at", r.startAt).
		Int("players", len(r.players)).Msg("race starting")
}

func (r *Room) handleKeystroke(msg keystrokeMsg) {
	p, ok := r.players[msg.playerID]
	if !ok || p.finished {
		return
	}
	if !r.started || r.clock.Now().Before(r.startAt) {
		r.sendTo(p, &protocol.ServerError{Message: "race has not started"})
		return
	}

	keystrokesTotal.Inc()
	p.score.apply(r.text, []rune(msg.key))

	elapsed := r.clock.Now().Sub(r.startAt)
	r.sendTo(p, &protocol.Update{
		Progress: p.score.progressPct(r.text),
		Mistakes: p.score.mistakes,
		SpeedWPM: p.score.speedWPM(elapsed),
	})

	if p.score.done(r.text) {
		p.finished = true
		p.status = protocol.StatusFinished
		r.sendTo(p, &protocol.Finished{
			TotalTimeMS: elapsed.Milliseconds(),
			Mistakes:    p.score.mistakes,
			Accuracy:    p.score.accuracyPct(),
			SpeedWPM:    p.score.speedWPM(elapsed),
		})
		r.broadcast(&protocol.UserFinished{UserID: p.username})
	}
}

func (r *Room) broadcastRoster() {
	participants := make([]protocol.Participant, 0, len(r.players))
	for _, p := range r.players {
		participants = append(participants, protocol.Participant{
			Username: p.username,
			Progress: p.score.progressPct(r.text),
			Mistakes: p.score.mistakes,
			Status:   p.status,
		})
	}
	r.broadcast(&protocol.RoomUpdate{Participants: participants})
}

func (r *Room) broadcast(f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.id).Msg("encode broadcast frame")
		return
	}
	for id, p := range r.players {
		select {
		case p.send <- data:
		default:
			// Slow consumer: drop the connection rather than the race.
			log.Warn().Str("room_id", r.id).Str("player", p.username).Msg("dropping slow connection")
			delete(r.players, id)
			close(p.send)
		}
	}
}

func (r *Room) sendTo(p *player, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.id).Msg("encode frame")
		return
	}
	select {
	case p.send <- data:
	default:
		log.Warn().Str("room_id", r.id).Str("player", p.username).Msg("send buffer full, dropping frame")
	}
}

func (r *Room) shutdown() {
	for id, p := range r.players {
		close(p.send)
		delete(r.players, id)
	}
	r.cancel()
}
