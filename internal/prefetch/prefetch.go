// Package prefetch warms the two items following the active one in the
// current group so the next story starts without a visible load. Everything
// here is best-effort: failures are logged at debug level and discarded, and
// nothing in this package ever touches playback state.
package prefetch

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/metrics"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"github.com/orgball2608/story-playback-engine/pkg/ratelimit"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/fx"
)

const fetchTimeout = 30 * time.Second

// Manager schedules lookahead warming for the active group.
type Manager interface {
	// Schedule recomputes the lookahead window after fromIndex and warms it.
	// Supersedes any previously scheduled window.
	Schedule(group domain.PublisherGroup, fromIndex int)
	// Invalidate drops all queued work. Called when the session closes.
	Invalidate()
}

// Fetcher performs the actual media warming.
type Fetcher interface {
	// WarmImage pulls the asset through the HTTP cache path.
	WarmImage(ctx context.Context, mediaURL string) error
	// PrimeVideo buffers the leading bytes of a video asset.
	PrimeVideo(ctx context.Context, mediaURL string) error
}

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Fetcher Fetcher
	Logger  logger.Logger
	Metrics metrics.Collector
	Config  *config.Config
}

type Impl struct {
	pool    *ants.Pool
	fetcher Fetcher
	logger  logger.Logger
	metrics metrics.Collector
	limiter ratelimit.Limiter
	window  int

	gen atomic.Uint64

	mu     sync.Mutex
	warmed map[string]struct{}
}

func New(opts Opts) (*Impl, error) {
	pool, err := ants.NewPool(opts.Config.Playback.PrefetchWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	m := &Impl{
		pool:    pool,
		fetcher: opts.Fetcher,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		limiter: ratelimit.NewInMemoryLimiter(4, time.Second, 8),
		window:  opts.Config.Playback.PrefetchCount,
		warmed:  make(map[string]struct{}),
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Release()
			return nil
		},
	})

	return m, nil
}

var _ Manager = (*Impl)(nil)

// Window returns the next count items after fromIndex, clipped to the group
// bounds. It never crosses into another group.
func Window(group domain.PublisherGroup, fromIndex, count int) []domain.StoryRecord {
	if fromIndex < -1 || fromIndex >= len(group.Items) {
		return nil
	}
	start := fromIndex + 1
	end := start + count
	if end > len(group.Items) {
		end = len(group.Items)
	}
	if start >= end {
		return nil
	}
	return group.Items[start:end]
}

func (m *Impl) Schedule(group domain.PublisherGroup, fromIndex int) {
	gen := m.gen.Add(1)

	for _, item := range Window(group, fromIndex, m.window) {
		item := item
		err := m.pool.Submit(func() {
			m.warm(gen, item)
		})
		if err != nil {
			// Pool saturated or released; prefetch is expendable.
			m.logger.Debug("Dropped prefetch job", "story_id", item.ID, "error", err)
			m.metrics.RecordPrefetch(string(item.MediaType), "dropped")
		}
	}
}

func (m *Impl) Invalidate() {
	m.gen.Add(1)
}

func (m *Impl) warm(gen uint64, item domain.StoryRecord) {
	// The session has moved on; this window is no longer relevant.
	if gen != m.gen.Load() {
		m.metrics.RecordPrefetch(string(item.MediaType), "stale")
		return
	}

	if !m.markWarmed(item.MediaURL) {
		return
	}

	if !m.limiter.Allow(hostOf(item.MediaURL)) {
		m.logger.Debug("Prefetch rate limited", "url", item.MediaURL)
		m.metrics.RecordPrefetch(string(item.MediaType), "limited")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	var err error
	if item.MediaType == domain.MediaTypeVideo {
		err = m.fetcher.PrimeVideo(ctx, item.MediaURL)
	} else {
		err = m.fetcher.WarmImage(ctx, item.MediaURL)
	}

	if err != nil {
		m.logger.Debug("Prefetch failed", "story_id", item.ID, "url", item.MediaURL, "error", err)
		m.metrics.RecordPrefetch(string(item.MediaType), "error")
		return
	}
	m.metrics.RecordPrefetch(string(item.MediaType), "ok")
}

// markWarmed returns false when the URL was already warmed this session.
func (m *Impl) markWarmed(mediaURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.warmed[mediaURL]; ok {
		return false
	}
	m.warmed[mediaURL] = struct{}{}
	return true
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}
