package session

import (
	"errors"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/player"
)

var (
	ErrSessionOpen  = errors.New("a playback session is already open")
	ErrNoSession    = errors.New("no playback session is open")
	ErrEmptyCatalog = errors.New("catalog has no playable groups")
	ErrInvalidIndex = errors.New("group index out of range")
)

// Controller hosts one playback session over the catalog. Only one session is
// ever open at a time; cross-group navigation requests from the state machine
// come back here.
type Controller interface {
	Open(groupIndex, itemIndex int) error
	Navigate(direction domain.Direction)
	Close()
	Snapshot() (domain.SessionSnapshot, error)
	// CurrentPlayer exposes the open session's state machine so the host
	// surface can forward platform and tap events.
	CurrentPlayer() (player.Client, error)
}
