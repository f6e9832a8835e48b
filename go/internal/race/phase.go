package race

// Phase is the lifecycle state of one race session.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseConnecting    Phase = "connecting"
	PhaseAwaitingStart Phase = "awaiting_start"
	PhaseCountdown     Phase = "countdown"
	PhaseRacing        Phase = "racing"
	PhaseFinished      Phase = "finished"
	PhaseDisconnected  Phase = "disconnected"
	PhaseError         Phase = "error"
)

// Terminal reports whether the session has reached a state it cannot leave.
// Recovery from Disconnected or Error means destroying the session and
// creating a new one; there is no automatic reconnect.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseFinished, PhaseDisconnected, PhaseError:
		return true
	}
	return false
}
