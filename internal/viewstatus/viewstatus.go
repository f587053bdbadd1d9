// Package viewstatus owns view-completion bookkeeping: records are written to
// the durable local cache first, then pushed to the remote store. The local
// cache answers "have I seen this" for the current install; the remote store
// is the cross-device source of truth and catches up via the pending set.
package viewstatus

import (
	"context"
	"errors"
	"time"

	"github.com/orgball2608/story-playback-engine/internal/cache"
	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/metrics"
	"github.com/orgball2608/story-playback-engine/internal/repositories/viewrecord"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"github.com/orgball2608/story-playback-engine/pkg/retry"
	"go.uber.org/fx"
)

const remoteTimeout = 30 * time.Second

// Recorder persists the outcome of watching one item. Fire-and-forget for the
// caller; the local write is synchronous, the remote submission is not.
type Recorder interface {
	Record(ctx context.Context, record domain.ViewRecord)
}

// Checker answers view-status queries, merging local and remote with
// OR-semantics: either source marking a story viewed makes it viewed.
type Checker interface {
	Status(ctx context.Context, storyID, viewerID string) (domain.ViewStatus, error)
	MarkCatalog(ctx context.Context, groups []domain.PublisherGroup, viewerID string)
}

type Opts struct {
	fx.In

	Cache   cache.ViewCache
	Repo    viewrecord.Repository
	Logger  logger.Logger
	Metrics metrics.Collector
}

type Service struct {
	cache   cache.ViewCache
	repo    viewrecord.Repository
	logger  logger.Logger
	metrics metrics.Collector
}

func New(opts Opts) *Service {
	return &Service{
		cache:   opts.Cache,
		repo:    opts.Repo,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

var _ Recorder = (*Service)(nil)
var _ Checker = (*Service)(nil)

// Record writes the record locally, marks it pending and submits it to the
// remote store in the background. Re-recording the same story overwrites the
// stored seconds/completed flag; entries are never duplicated.
func (s *Service) Record(ctx context.Context, record domain.ViewRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if err := s.cache.Set(ctx, record); err != nil {
		s.logger.Error("Failed to write view record to local cache", "story_id", record.StoryID, "error", err)
	}
	if err := s.cache.AddPending(ctx, record.ViewerID, record.StoryID); err != nil {
		s.logger.Error("Failed to mark view record pending", "story_id", record.StoryID, "error", err)
	}

	s.metrics.RecordViewRecorded(record.Completed)

	go s.submitRemote(record)
}

func (s *Service) submitRemote(record domain.ViewRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	err := retry.Do(ctx, s.logger, "persist view record", func() error {
		return s.repo.Upsert(ctx, record)
	}, retry.DefaultConfig())
	if err != nil {
		// Local cache remains authoritative; the reconciler retries later.
		s.logger.Warn("Remote view record submission failed", "story_id", record.StoryID, "error", err)
		return
	}

	if err := s.cache.RemovePending(ctx, record.ViewerID, record.StoryID); err != nil {
		s.logger.Warn("Failed to clear pending flag", "story_id", record.StoryID, "error", err)
	}
}

// Status merges local and remote view state for one story.
func (s *Service) Status(ctx context.Context, storyID, viewerID string) (domain.ViewStatus, error) {
	var status domain.ViewStatus

	local, err := s.cache.Get(ctx, viewerID, storyID)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("Local view cache read failed", "story_id", storyID, "error", err)
	}
	if local != nil {
		status.HasViewed = true
		status.IsCompleted = local.Completed
	}

	remote, err := s.repo.Get(ctx, storyID, viewerID)
	if err != nil && !errors.Is(err, viewrecord.ErrNotFound) {
		// Remote being unreachable must not make viewed stories look fresh.
		s.logger.Warn("Remote view record read failed", "story_id", storyID, "error", err)
	}
	if remote != nil {
		status.HasViewed = true
		status.IsCompleted = status.IsCompleted || remote.Completed
	}

	return status, nil
}

// MarkCatalog seeds the Viewed overlay on every item in the catalog.
func (s *Service) MarkCatalog(ctx context.Context, groups []domain.PublisherGroup, viewerID string) {
	for gi := range groups {
		for ii := range groups[gi].Items {
			status, err := s.Status(ctx, groups[gi].Items[ii].ID, viewerID)
			if err != nil {
				continue
			}
			groups[gi].Items[ii].Viewed = status.HasViewed
		}
	}
}

// Reconcile pushes every pending local record to the remote store. Records
// that made it remote are unmarked; failures stay pending for the next run.
func (s *Service) Reconcile(ctx context.Context, viewerID string) error {
	storyIDs, err := s.cache.ListPending(ctx, viewerID)
	if err != nil {
		return err
	}

	for _, storyID := range storyIDs {
		record, err := s.cache.Get(ctx, viewerID, storyID)
		if err != nil {
			if errors.Is(err, cache.ErrMiss) {
				// Pending entry without a record is garbage.
				_ = s.cache.RemovePending(ctx, viewerID, storyID)
			}
			continue
		}

		if err := s.repo.Upsert(ctx, *record); err != nil {
			s.logger.Warn("Reconcile upsert failed", "story_id", storyID, "error", err)
			continue
		}

		if err := s.cache.RemovePending(ctx, viewerID, storyID); err != nil {
			s.logger.Warn("Failed to clear pending flag after reconcile", "story_id", storyID, "error", err)
		}
	}

	return nil
}
