package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/feed"
	"github.com/orgball2608/story-playback-engine/internal/viewstatus"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Feed    feed.Client
	Checker viewstatus.Checker
	Logger  logger.Logger
	Config  *config.Config
}

// Service keeps the current catalog: feed records grouped per publisher with
// the viewed overlay seeded from local+remote view status.
type Service struct {
	feed     feed.Client
	checker  viewstatus.Checker
	logger   logger.Logger
	viewerID string

	mu     sync.RWMutex
	groups []domain.PublisherGroup
}

func NewService(opts Opts) *Service {
	return &Service{
		feed:     opts.Feed,
		checker:  opts.Checker,
		logger:   opts.Logger,
		viewerID: opts.Config.Playback.ViewerID,
	}
}

// Refresh rebuilds the catalog from the feed.
func (s *Service) Refresh(ctx context.Context) error {
	raw, err := s.feed.FetchAllStoryRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch story records: %w", err)
	}

	groups := Build(raw)
	s.checker.MarkCatalog(ctx, groups, s.viewerID)

	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()

	s.logger.Info("Catalog refreshed", "groups", len(groups), "records", len(raw))
	return nil
}

// Groups returns the current catalog.
func (s *Service) Groups() []domain.PublisherGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups
}
