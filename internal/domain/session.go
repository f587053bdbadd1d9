package domain

type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StateLoading
	StatePlaying
	StatePaused
	StateAdvancing
	StateClosed
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAdvancing:
		return "advancing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// SessionSnapshot is a read-only view of the playback session.
type SessionSnapshot struct {
	SessionID  string        `json:"session_id"`
	GroupIndex int           `json:"group_index"`
	ItemIndex  int           `json:"item_index"`
	StoryID    string        `json:"story_id"`
	State      PlaybackState `json:"-"`
	StateName  string        `json:"state"`
	Progress   float64       `json:"progress"`
	MediaReady bool          `json:"media_ready"`
}
