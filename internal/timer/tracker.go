package timer

import (
	"sync"
	"time"
)

// Tracker drives media whose platform reports playback position (video, and
// animated images when the platform can report position for them). Progress is
// clamp(position/duration); while the duration is unknown progress stays at 0.
// Expiry is the platform's finished signal, which the player handles directly,
// so the tracker itself never fires a callback.
type Tracker struct {
	mu         sync.Mutex
	positionMs int64
	durationMs int64
	paused     bool
	stopped    bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Report records the latest platform position/duration callback. Reports for a
// paused or stopped tracker are ignored so a stale platform callback cannot
// move progress after the item changed.
func (t *Tracker) Report(positionMs, durationMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.paused {
		return
	}
	if durationMs > 0 {
		t.durationMs = durationMs
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if t.durationMs > 0 && positionMs > t.durationMs {
		positionMs = t.durationMs
	}
	t.positionMs = positionMs
}

func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.durationMs <= 0 {
		return 0
	}
	ratio := float64(t.positionMs) / float64(t.durationMs)
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.positionMs) * time.Millisecond
}

// Pause freezes the tracked position; the platform pauses playback natively.
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
}

// Resume accepts position reports again; the platform resumes from position.
func (t *Tracker) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

var _ Source = (*Tracker)(nil)
