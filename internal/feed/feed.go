package feed

import (
	"context"
	"errors"

	"github.com/orgball2608/story-playback-engine/internal/domain"
)

var ErrUnavailable = errors.New("feed is unavailable")

// Client is the upstream feed collaborator. The engine never calls it
// directly; the catalog service does, at build time.
type Client interface {
	FetchAllStoryRecords(ctx context.Context) ([]domain.RawStoryRecord, error)
}
