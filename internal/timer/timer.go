// Package timer provides the progress sources for story playback: a
// clock-driven countdown for static media and a position tracker for media
// whose platform reports playback position. Exactly one source is live per
// item; the player stops the old source before starting a new one.
package timer

import "time"

// Source is the per-item timing strategy, selected once when an item becomes
// ready and never re-decided mid-item.
type Source interface {
	// Progress reports normalized playback progress in [0, 1].
	Progress() float64
	// Elapsed reports how much of the item has been watched.
	Elapsed() time.Duration
	// Pause stops advancement without resetting progress.
	Pause()
	// Resume continues from the paused ratio.
	Resume()
	// Stop permanently disables the source. A stopped source never fires
	// its expiry callback, even if the underlying timer already triggered.
	Stop()
}
