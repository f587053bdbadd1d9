package viewrecord

import (
	"context"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	apperrors "github.com/orgball2608/story-playback-engine/pkg/errors"
)

var ErrNotFound = apperrors.Wrap(apperrors.ErrNotFound, "view record")
var ErrCannotUpsert = apperrors.New("error upserting view record")

// Repository is the remote source of truth for view records, reconciled
// eventually with the local cache.
type Repository interface {
	Upsert(ctx context.Context, record domain.ViewRecord) error
	Get(ctx context.Context, storyID, viewerID string) (*domain.ViewRecord, error)
	ListByViewer(ctx context.Context, viewerID string) ([]*domain.ViewRecord, error)
}
