package playerimpl

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/metrics"
	"github.com/orgball2608/story-playback-engine/internal/player"
	"github.com/orgball2608/story-playback-engine/internal/prefetch"
	"github.com/orgball2608/story-playback-engine/internal/timer"
	"github.com/orgball2608/story-playback-engine/internal/viewstatus"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Prefetch prefetch.Manager
	Recorder viewstatus.Recorder
	Logger   logger.Logger
	Metrics  metrics.Collector
	Clock    clockwork.Clock
	Config   *config.Config
}

// NewFactory returns a player.Factory wired with the engine collaborators.
func NewFactory(opts Opts) player.Factory {
	return func(cb player.Callbacks) player.Client {
		return &Impl{
			cb:            cb,
			prefetch:      opts.Prefetch,
			recorder:      opts.Recorder,
			logger:        opts.Logger,
			metrics:       opts.Metrics,
			clock:         opts.Clock,
			viewerID:      opts.Config.Playback.ViewerID,
			imageDuration: time.Duration(opts.Config.Playback.ImageDisplaySeconds) * time.Second,
			watchdogDur:   time.Duration(opts.Config.Playback.LoadingWatchdogSeconds) * time.Second,
			state:         domain.StateIdle,
		}
	}
}

// Impl owns the playback session and is the only writer of its fields. Every
// entry point takes the transition lock, computes the next state, and collects
// callbacks to run after the lock is released, so collaborators may call back
// into the player without deadlocking.
type Impl struct {
	cb            player.Callbacks
	prefetch      prefetch.Manager
	recorder      viewstatus.Recorder
	logger        logger.Logger
	metrics       metrics.Collector
	clock         clockwork.Clock
	viewerID      string
	imageDuration time.Duration
	watchdogDur   time.Duration

	mu         sync.Mutex
	group      domain.PublisherGroup
	groupIndex int
	itemIndex  int
	state      domain.PlaybackState
	mediaReady bool
	source     timer.Source
	watchdog   clockwork.Timer

	// gen is bumped on every item change and on close. Timer, watchdog and
	// position callbacks carry the gen they were created under; a mismatch
	// means the callback is stale and must not touch the session.
	gen uint64
}

var _ player.Client = (*Impl)(nil)

func (p *Impl) Open(group domain.PublisherGroup, groupIndex, itemIndex int) error {
	p.mu.Lock()
	if p.state == domain.StateClosed {
		p.mu.Unlock()
		return player.ErrClosed
	}
	if len(group.Items) == 0 {
		p.mu.Unlock()
		return player.ErrEmptyGroup
	}
	if itemIndex < 0 || itemIndex >= len(group.Items) {
		p.mu.Unlock()
		return player.ErrInvalidIndex
	}

	p.group = group
	p.groupIndex = groupIndex
	p.itemIndex = itemIndex
	after := p.loadItemLocked()
	p.mu.Unlock()

	run(after)
	return nil
}

func (p *Impl) MediaReady(storyID string, durationMs int64) {
	p.mu.Lock()
	if p.state != domain.StateLoading || storyID != p.currentLocked().ID {
		p.mu.Unlock()
		return
	}

	p.stopWatchdogLocked()
	p.mediaReady = true
	p.state = domain.StatePlaying
	p.metrics.RecordTransition(domain.StatePlaying.String())
	p.source = p.newSourceLocked(durationMs)
	p.mu.Unlock()
}

// newSourceLocked picks the timing strategy once per item. Video always runs
// on reported position; animated images do when the platform reports a
// duration; everything else gets the fixed countdown.
func (p *Impl) newSourceLocked(durationMs int64) timer.Source {
	item := p.currentLocked()

	native := item.MediaType == domain.MediaTypeVideo ||
		(item.MediaType == domain.MediaTypeAnimatedImage && durationMs > 0)
	if native {
		tracker := timer.NewTracker()
		tracker.Report(0, durationMs)
		return tracker
	}

	gen := p.gen
	countdown := timer.NewCountdown(p.clock, p.imageDuration, func() {
		p.countdownExpired(gen)
	})
	countdown.Start()
	return countdown
}

func (p *Impl) ReportPosition(storyID string, positionMs, durationMs int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.StatePlaying || storyID != p.currentLocked().ID {
		return
	}
	if tracker, ok := p.source.(*timer.Tracker); ok {
		tracker.Report(positionMs, durationMs)
	}
}

func (p *Impl) MediaFinished(storyID string) {
	p.mu.Lock()
	if (p.state != domain.StatePlaying && p.state != domain.StatePaused) ||
		storyID != p.currentLocked().ID {
		p.mu.Unlock()
		return
	}
	after := p.advanceLocked(true)
	p.mu.Unlock()

	run(after)
}

func (p *Impl) countdownExpired(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != domain.StatePlaying {
		p.mu.Unlock()
		return
	}
	after := p.advanceLocked(true)
	p.mu.Unlock()

	run(after)
}

func (p *Impl) watchdogExpired(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state != domain.StateLoading {
		p.mu.Unlock()
		return
	}
	p.logger.Warn("Media never became ready, skipping item",
		"story_id", p.currentLocked().ID,
		"url", p.currentLocked().MediaURL,
	)
	p.metrics.RecordMediaError()
	after := p.advanceLocked(false)
	p.mu.Unlock()

	run(after)
}

func (p *Impl) MediaError(storyID string, cause error) {
	p.mu.Lock()
	// Advancing is excluded: an error arriving while a group handoff is in
	// flight must not advance the same item twice.
	if !p.activeLocked() || storyID != p.currentLocked().ID {
		p.mu.Unlock()
		return
	}
	p.logger.Warn("Media load error, skipping item", "story_id", storyID, "error", cause)
	p.metrics.RecordMediaError()
	after := p.advanceLocked(false)
	p.mu.Unlock()

	run(after)
}

func (p *Impl) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.StatePlaying {
		return
	}
	p.state = domain.StatePaused
	p.metrics.RecordTransition(domain.StatePaused.String())
	p.source.Pause()
}

func (p *Impl) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != domain.StatePaused {
		return
	}
	p.state = domain.StatePlaying
	p.metrics.RecordTransition(domain.StatePlaying.String())
	p.source.Resume()
}

func (p *Impl) Advance() {
	p.mu.Lock()
	if !p.activeLocked() {
		p.mu.Unlock()
		return
	}
	after := p.advanceLocked(true)
	p.mu.Unlock()

	run(after)
}

func (p *Impl) Rewind() {
	p.mu.Lock()
	if !p.activeLocked() {
		p.mu.Unlock()
		return
	}

	var after []func()
	if p.itemIndex > 0 {
		p.itemIndex--
		after = p.loadItemLocked()
	} else {
		cb := p.cb.OnNavigateGroup
		after = append(after, func() {
			if cb != nil {
				cb(domain.DirectionPrev)
			}
		})
	}
	p.mu.Unlock()

	run(after)
}

func (p *Impl) Close() {
	p.mu.Lock()
	if p.state == domain.StateClosed {
		p.mu.Unlock()
		return
	}
	p.gen++
	p.stopSourceLocked()
	p.stopWatchdogLocked()
	p.state = domain.StateClosed
	p.metrics.RecordTransition(domain.StateClosed.String())
	cb := p.cb.OnSessionClose
	p.mu.Unlock()

	p.prefetch.Invalidate()
	if cb != nil {
		cb()
	}
}

func (p *Impl) Snapshot() domain.SessionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := domain.SessionSnapshot{
		GroupIndex: p.groupIndex,
		ItemIndex:  p.itemIndex,
		State:      p.state,
		StateName:  p.state.String(),
		MediaReady: p.mediaReady,
	}
	if len(p.group.Items) > 0 && p.state != domain.StateIdle {
		snapshot.StoryID = p.currentLocked().ID
	}
	if p.source != nil {
		snapshot.Progress = p.source.Progress()
	}
	return snapshot
}

// advanceLocked leaves the current item going forward. Completion is recorded
// before the index moves; the host callbacks run after the lock drops.
func (p *Impl) advanceLocked(completed bool) []func() {
	item := p.currentLocked()

	var watched float64
	if p.source != nil {
		watched = p.source.Elapsed().Seconds()
	}

	p.state = domain.StateAdvancing
	p.metrics.RecordTransition(domain.StateAdvancing.String())

	if completed {
		p.recorder.Record(recordCtx(), domain.ViewRecord{
			StoryID:        item.ID,
			ViewerID:       p.viewerID,
			WatchedSeconds: watched,
			Completed:      true,
			Timestamp:      p.clock.Now(),
		})
	}

	var after []func()
	if itemCb := p.cb.OnItemComplete; itemCb != nil {
		after = append(after, func() { itemCb(item.ID, completed) })
	}

	if p.itemIndex+1 < len(p.group.Items) {
		p.itemIndex++
		after = append(after, p.loadItemLocked()...)
		return after
	}

	if navCb := p.cb.OnNavigateGroup; navCb != nil {
		after = append(after, func() { navCb(domain.DirectionNext) })
	}
	return after
}

// loadItemLocked moves the session onto the current (groupIndex, itemIndex)
// pair: progress back to zero, media not ready, stale timers fenced off by the
// generation bump, watchdog armed, lookahead rescheduled.
func (p *Impl) loadItemLocked() []func() {
	p.gen++
	p.stopSourceLocked()
	p.stopWatchdogLocked()

	p.state = domain.StateLoading
	p.mediaReady = false
	p.metrics.RecordTransition(domain.StateLoading.String())

	if p.watchdogDur > 0 {
		gen := p.gen
		p.watchdog = p.clock.AfterFunc(p.watchdogDur, func() {
			p.watchdogExpired(gen)
		})
	}

	group, index := p.group, p.itemIndex
	return []func(){func() {
		p.prefetch.Schedule(group, index)
	}}
}

func (p *Impl) stopSourceLocked() {
	if p.source != nil {
		p.source.Stop()
		p.source = nil
	}
}

func (p *Impl) stopWatchdogLocked() {
	if p.watchdog != nil {
		p.watchdog.Stop()
		p.watchdog = nil
	}
}

func (p *Impl) currentLocked() domain.StoryRecord {
	return p.group.Items[p.itemIndex]
}

func (p *Impl) activeLocked() bool {
	switch p.state {
	case domain.StateLoading, domain.StatePlaying, domain.StatePaused:
		return true
	default:
		return false
	}
}

// recordCtx backs the recorder's synchronous local write. The recorder applies
// its own timeout for the remote half.
func recordCtx() context.Context {
	return context.Background()
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
