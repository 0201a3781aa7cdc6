package domain

// SessionID identifies one interview session. Sessions are created by the
// external CRUD API; the coordinator only looks them up.
type SessionID string

// CodeState is the shared editor buffer. Last writer wins, no merge.
type CodeState struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// TimerState mirrors what clients need to resync their local countdown.
type TimerState struct {
	DurationSeconds int  `json:"durationSeconds"`
	Running         bool `json:"running"`
}

// Timer control actions accepted from recruiters.
const (
	TimerStart = "start"
	TimerPause = "pause"
	TimerReset = "reset"
)

func ValidTimerAction(action string) bool {
	switch action {
	case TimerStart, TimerPause, TimerReset:
		return true
	}
	return false
}
