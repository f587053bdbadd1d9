package cache

import (
	"context"
	"errors"

	"github.com/orgball2608/story-playback-engine/internal/domain"
)

var ErrMiss = errors.New("view record not cached")

// ViewCache is the durable local store for view records. Within one install it
// is the authoritative answer to "have I seen this"; the remote store catches
// up through the pending set.
type ViewCache interface {
	Get(ctx context.Context, viewerID, storyID string) (*domain.ViewRecord, error)
	Set(ctx context.Context, record domain.ViewRecord) error

	AddPending(ctx context.Context, viewerID, storyID string) error
	RemovePending(ctx context.Context, viewerID, storyID string) error
	ListPending(ctx context.Context, viewerID string) ([]string, error)
}
