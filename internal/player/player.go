package player

import (
	"errors"

	"github.com/orgball2608/story-playback-engine/internal/domain"
)

var (
	ErrEmptyGroup   = errors.New("group has no playable items")
	ErrInvalidIndex = errors.New("item index out of range")
	ErrClosed       = errors.New("playback session is closed")
)

// Callbacks is how the state machine talks to its host. These are the only
// outward signals the engine emits; no engine-internal error ever propagates.
type Callbacks struct {
	// OnItemComplete fires once per forward item transition. Completed is
	// true for timer expiry, native finish and manual skip alike; it is
	// false when an unplayable item was skipped.
	OnItemComplete func(storyID string, completed bool)
	// OnNavigateGroup fires when the engine exhausts the current group's
	// natural forward or backward range.
	OnNavigateGroup func(direction domain.Direction)
	// OnSessionClose fires exactly once when the session ends.
	OnSessionClose func()
}

// Client is the playback state machine. Every platform callback, timer expiry
// and user tap is translated into one of these calls; all of them funnel
// through a single transition lock, so partial updates cannot be observed.
type Client interface {
	// Open starts playback at itemIndex inside group. Also used by the
	// session controller to land in an adjacent group.
	Open(group domain.PublisherGroup, groupIndex, itemIndex int) error
	// MediaReady signals the active item's media can play. For video and
	// position-capable animated images durationMs selects native timing.
	MediaReady(storyID string, durationMs int64)
	// ReportPosition feeds the platform playback position for native items.
	ReportPosition(storyID string, positionMs, durationMs int64)
	// MediaFinished is the platform's end-of-media signal.
	MediaFinished(storyID string)
	// MediaError skips an unplayable item without recording a view.
	MediaError(storyID string, cause error)
	// Pause and Resume are tap-to-pause semantics; both are idempotent.
	Pause()
	Resume()
	// Advance is a manual forward tap. Records completed=true by product
	// policy even though the item was not necessarily fully watched.
	Advance()
	// Rewind is a manual backward tap. Records nothing.
	Rewind()
	// Close tears the session down from any state.
	Close()
	// Snapshot returns the current session view.
	Snapshot() domain.SessionSnapshot
}

// Factory builds a player bound to one host's callbacks. One player serves
// one viewing session.
type Factory func(cb Callbacks) Client
