package feedimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/feed"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Logger logger.Logger
	Config *config.Config
}

type FeedImpl struct {
	client  *http.Client
	feedURL string
	logger  logger.Logger
}

func New(opts Opts) *FeedImpl {
	return &FeedImpl{
		client: &http.Client{
			Timeout: time.Duration(opts.Config.Feed.TimeoutSeconds) * time.Second,
		},
		feedURL: opts.Config.Feed.URL,
		logger:  opts.Logger,
	}
}

var _ feed.Client = (*FeedImpl)(nil)

func (f *FeedImpl) FetchAllStoryRecords(ctx context.Context) ([]domain.RawStoryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feed.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", feed.ErrUnavailable, resp.StatusCode)
	}

	var records []domain.RawStoryRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	f.logger.Debug("Fetched story records from feed", "count", len(records))
	return records, nil
}
