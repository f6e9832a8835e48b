package race

import (
	"sort"

	"github.com/mcdev12/typerace/go/internal/protocol"
)

// Roster tracks the live set of room participants. It is owned and mutated
// only by the session actor.
//
// Broadcasts carry no sequence numbers, so ordering is arrival order with
// last-applied-wins — except that terminal statuses (finished, dropped) are
// sticky: a snapshot that was queued before a targeted UserFinished/UserLeft
// but delivered after it cannot regress that participant's status.
type Roster struct {
	participants map[string]protocol.Participant
}

func NewRoster() *Roster {
	return &Roster{participants: make(map[string]protocol.Participant)}
}

// ApplySnapshot replaces the roster wholesale with a broadcast snapshot.
// Participants absent from the snapshot are removed. Terminal statuses
// already recorded locally are preserved; everything else, including the
// numeric fields of terminal participants, comes from the snapshot.
func (r *Roster) ApplySnapshot(participants []protocol.Participant) {
	next := make(map[string]protocol.Participant, len(participants))
	for _, p := range participants {
		if prev, ok := r.participants[p.Username]; ok && prev.Status.Terminal() && !p.Status.Terminal() {
			p.Status = prev.Status
		}
		next[p.Username] = p
	}
	r.participants = next
}

// SetStatus applies a targeted status event for one participant. A targeted
// event may arrive before the first snapshot names the user; the entry is
// created in that case so a later stale snapshot cannot regress it.
func (r *Roster) SetStatus(username string, status protocol.ParticipantStatus) {
	p, ok := r.participants[username]
	if !ok {
		p = protocol.Participant{Username: username}
	}
	p.Status = status
	r.participants[username] = p
}

// Participants returns the roster sorted by username.
func (r *Roster) Participants() []protocol.Participant {
	out := make([]protocol.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
