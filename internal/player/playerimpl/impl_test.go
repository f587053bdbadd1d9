package playerimpl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/metrics"
	"github.com/orgball2608/story-playback-engine/internal/player"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
)

type fakePrefetch struct {
	mu          sync.Mutex
	scheduled   []int
	invalidated int
}

func (f *fakePrefetch) Schedule(_ domain.PublisherGroup, fromIndex int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, fromIndex)
}

func (f *fakePrefetch) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakePrefetch) scheduledIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.scheduled...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.ViewRecord
	ch      chan domain.ViewRecord
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{ch: make(chan domain.ViewRecord, 16)}
}

func (f *fakeRecorder) Record(_ context.Context, record domain.ViewRecord) {
	f.mu.Lock()
	f.records = append(f.records, record)
	f.mu.Unlock()
	f.ch <- record
}

func (f *fakeRecorder) all() []domain.ViewRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ViewRecord(nil), f.records...)
}

func (f *fakeRecorder) wait(t *testing.T) domain.ViewRecord {
	t.Helper()
	select {
	case rec := <-f.ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("no view record was written")
		return domain.ViewRecord{}
	}
}

type callbackLog struct {
	mu        sync.Mutex
	completed []string
	navs      []domain.Direction
	closes    int
}

func (l *callbackLog) callbacks() player.Callbacks {
	return player.Callbacks{
		OnItemComplete: func(storyID string, _ bool) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.completed = append(l.completed, storyID)
		},
		OnNavigateGroup: func(dir domain.Direction) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.navs = append(l.navs, dir)
		},
		OnSessionClose: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.closes++
		},
	}
}

func (l *callbackLog) navigations() []domain.Direction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Direction(nil), l.navs...)
}

func (l *callbackLog) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

type playerFixture struct {
	player   player.Client
	clock    *clockwork.FakeClock
	prefetch *fakePrefetch
	recorder *fakeRecorder
	log      *callbackLog
}

func newFixture(t *testing.T, watchdogSeconds int) *playerFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Playback.ViewerID = "viewer-1"
	cfg.Playback.ImageDisplaySeconds = 15
	cfg.Playback.LoadingWatchdogSeconds = watchdogSeconds

	clock := clockwork.NewFakeClock()
	pf := &fakePrefetch{}
	rec := newFakeRecorder()
	log := &callbackLog{}

	factory := NewFactory(Opts{
		Prefetch: pf,
		Recorder: rec,
		Logger:   logger.NewNop(),
		Metrics:  metrics.Noop{},
		Clock:    clock,
		Config:   cfg,
	})

	return &playerFixture{
		player:   factory(log.callbacks()),
		clock:    clock,
		prefetch: pf,
		recorder: rec,
		log:      log,
	}
}

func imageGroup(publisher string, n int) domain.PublisherGroup {
	group := domain.PublisherGroup{PublisherID: publisher}
	for i := 0; i < n; i++ {
		group.Items = append(group.Items, domain.StoryRecord{
			ID:        publisher + "-s" + string(rune('0'+i)),
			MediaURL:  "https://cdn.example.com/" + publisher + "/" + string(rune('0'+i)) + ".jpg",
			MediaType: domain.MediaTypeImage,
		})
	}
	return group
}

func TestOpenRejectsBadInput(t *testing.T) {
	f := newFixture(t, 0)

	if err := f.player.Open(domain.PublisherGroup{}, 0, 0); !errors.Is(err, player.ErrEmptyGroup) {
		t.Fatalf("expected ErrEmptyGroup, got %v", err)
	}
	if err := f.player.Open(imageGroup("alice", 2), 0, 5); !errors.Is(err, player.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	if err := f.player.Open(imageGroup("alice", 2), 0, -1); !errors.Is(err, player.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestOpenLoadsItemAndSchedulesPrefetch(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 3)

	if err := f.player.Open(group, 0, 0); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	snap := f.player.Snapshot()
	if snap.State != domain.StateLoading {
		t.Fatalf("expected Loading, got %s", snap.StateName)
	}
	if snap.StoryID != "alice-s0" || snap.MediaReady {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := f.prefetch.scheduledIndexes(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected one prefetch schedule at index 0, got %v", got)
	}
}

func TestImageWalkRecordsThreeCompletionsInOrder(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 3)

	if err := f.player.Open(group, 0, 0); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		snap := f.player.Snapshot()
		if snap.ItemIndex != i {
			t.Fatalf("expected item %d, got %d", i, snap.ItemIndex)
		}
		f.player.MediaReady(snap.StoryID, 0)
		f.player.Advance()
	}

	records := f.recorder.all()
	if len(records) != 3 {
		t.Fatalf("expected 3 view records, got %d", len(records))
	}
	for i, rec := range records {
		wantID := group.Items[i].ID
		if rec.StoryID != wantID {
			t.Fatalf("record %d out of order: got %s, want %s", i, rec.StoryID, wantID)
		}
		if !rec.Completed {
			t.Fatalf("record %d must be completed", i)
		}
		if rec.ViewerID != "viewer-1" {
			t.Fatalf("record %d has wrong viewer: %s", i, rec.ViewerID)
		}
	}

	if navs := f.log.navigations(); len(navs) != 1 || navs[0] != domain.DirectionNext {
		t.Fatalf("expected a single next navigation, got %v", navs)
	}
}

func TestCountdownExpiryAdvancesAutomatically(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 2)

	if err := f.player.Open(group, 0, 0); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	f.player.MediaReady("alice-s0", 0)

	f.clock.Advance(15 * time.Second)

	rec := f.recorder.wait(t)
	if rec.StoryID != "alice-s0" || !rec.Completed {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.WatchedSeconds != 15 {
		t.Fatalf("expected 15 watched seconds, got %f", rec.WatchedSeconds)
	}

	// The expiry callback also moves the session onto the next item.
	deadline := time.After(2 * time.Second)
	for {
		if snap := f.player.Snapshot(); snap.ItemIndex == 1 {
			if snap.State != domain.StateLoading {
				t.Fatalf("next item should be Loading, got %s", snap.StateName)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("session never advanced to the next item")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPauseFreezesAndResumeContinues(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 1)

	_ = f.player.Open(group, 0, 0)
	f.player.MediaReady("alice-s0", 0)

	f.clock.Advance(6 * time.Second)
	f.player.Pause()

	if snap := f.player.Snapshot(); snap.State != domain.StatePaused {
		t.Fatalf("expected Paused, got %s", snap.StateName)
	}

	before := f.player.Snapshot().Progress
	f.clock.Advance(time.Hour)
	after := f.player.Snapshot().Progress
	if before != after {
		t.Fatalf("progress moved while paused: %f -> %f", before, after)
	}

	// Pause twice then resume twice; the second call of each is a no-op.
	f.player.Pause()
	f.player.Resume()
	f.player.Resume()
	if snap := f.player.Snapshot(); snap.State != domain.StatePlaying {
		t.Fatalf("expected Playing after resume, got %s", snap.StateName)
	}

	// 9s remained at pause time; the item must run that long again.
	f.clock.Advance(9 * time.Second)
	rec := f.recorder.wait(t)
	if rec.StoryID != "alice-s0" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestPauseBeforeMediaReadyIsIgnored(t *testing.T) {
	f := newFixture(t, 0)
	_ = f.player.Open(imageGroup("alice", 1), 0, 0)

	f.player.Pause()

	if snap := f.player.Snapshot(); snap.State != domain.StateLoading {
		t.Fatalf("pause during Loading must not transition, got %s", snap.StateName)
	}
}

func TestMediaErrorSkipsWithoutRecording(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 2)

	_ = f.player.Open(group, 0, 0)
	f.player.MediaError("alice-s0", errors.New("cdn returned 503"))

	if snap := f.player.Snapshot(); snap.ItemIndex != 1 || snap.State != domain.StateLoading {
		t.Fatalf("expected Loading on item 1, got item %d in %s", snap.ItemIndex, snap.StateName)
	}
	if records := f.recorder.all(); len(records) != 0 {
		t.Fatalf("failed item must not be recorded, got %v", records)
	}
}

func TestMediaEventsForWrongStoryAreIgnored(t *testing.T) {
	f := newFixture(t, 0)
	_ = f.player.Open(imageGroup("alice", 2), 0, 0)

	f.player.MediaReady("someone-else", 0)
	if snap := f.player.Snapshot(); snap.State != domain.StateLoading {
		t.Fatalf("stale MediaReady must be ignored, got %s", snap.StateName)
	}

	f.player.MediaReady("alice-s0", 0)
	f.player.MediaFinished("someone-else")
	if snap := f.player.Snapshot(); snap.ItemIndex != 0 {
		t.Fatalf("stale MediaFinished must be ignored, got item %d", snap.ItemIndex)
	}
}

func TestVideoUsesReportedPosition(t *testing.T) {
	f := newFixture(t, 0)
	group := domain.PublisherGroup{
		PublisherID: "alice",
		Items: []domain.StoryRecord{{
			ID:        "v1",
			MediaURL:  "https://cdn.example.com/clip.mp4",
			MediaType: domain.MediaTypeVideo,
		}},
	}

	_ = f.player.Open(group, 0, 0)
	f.player.MediaReady("v1", 20000)

	f.player.ReportPosition("v1", 5000, 20000)
	if got := f.player.Snapshot().Progress; got != 0.25 {
		t.Fatalf("expected progress 0.25 from reported position, got %f", got)
	}

	// The wall clock has no say for video items.
	f.clock.Advance(time.Hour)
	if got := f.player.Snapshot().Progress; got != 0.25 {
		t.Fatalf("video progress must follow reports only, got %f", got)
	}

	f.player.MediaFinished("v1")
	rec := f.recorder.wait(t)
	if rec.StoryID != "v1" || !rec.Completed {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.WatchedSeconds != 5 {
		t.Fatalf("expected 5 watched seconds from last report, got %f", rec.WatchedSeconds)
	}
}

func TestAnimatedImageWithDurationTracksNatively(t *testing.T) {
	f := newFixture(t, 0)
	group := domain.PublisherGroup{
		PublisherID: "alice",
		Items: []domain.StoryRecord{{
			ID:        "g1",
			MediaURL:  "https://cdn.example.com/fun.gif",
			MediaType: domain.MediaTypeAnimatedImage,
		}},
	}

	_ = f.player.Open(group, 0, 0)
	f.player.MediaReady("g1", 4000)

	f.player.ReportPosition("g1", 2000, 4000)
	if got := f.player.Snapshot().Progress; got != 0.5 {
		t.Fatalf("expected native tracking for animated image with duration, got %f", got)
	}
}

func TestProgressResetsOnItemChange(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 2)

	_ = f.player.Open(group, 0, 0)
	f.player.MediaReady("alice-s0", 0)
	f.clock.Advance(10 * time.Second)

	if got := f.player.Snapshot().Progress; got < 0.6 {
		t.Fatalf("expected progress past 0.6 before advancing, got %f", got)
	}

	f.player.Advance()

	if got := f.player.Snapshot().Progress; got != 0 {
		t.Fatalf("progress must reset to 0 on item change, got %f", got)
	}
}

func TestRewindMidGroupGoesBackOneItem(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 3)

	_ = f.player.Open(group, 0, 1)
	f.player.MediaReady("alice-s1", 0)

	f.player.Rewind()

	snap := f.player.Snapshot()
	if snap.ItemIndex != 0 || snap.State != domain.StateLoading {
		t.Fatalf("expected Loading on item 0, got item %d in %s", snap.ItemIndex, snap.StateName)
	}
	if navs := f.log.navigations(); len(navs) != 0 {
		t.Fatalf("mid-group rewind must not navigate groups, got %v", navs)
	}
}

func TestRewindAtFirstItemNavigatesPrev(t *testing.T) {
	f := newFixture(t, 0)
	_ = f.player.Open(imageGroup("alice", 2), 0, 0)
	f.player.MediaReady("alice-s0", 0)

	f.player.Rewind()

	if navs := f.log.navigations(); len(navs) != 1 || navs[0] != domain.DirectionPrev {
		t.Fatalf("expected a single prev navigation, got %v", navs)
	}
	if records := f.recorder.all(); len(records) != 0 {
		t.Fatalf("rewind must not record views, got %v", records)
	}
}

func TestCloseIsTerminalAndFiresOnce(t *testing.T) {
	f := newFixture(t, 0)
	_ = f.player.Open(imageGroup("alice", 2), 0, 0)
	f.player.MediaReady("alice-s0", 0)

	f.player.Close()
	f.player.Close()

	if got := f.log.closeCount(); got != 1 {
		t.Fatalf("close callback must fire exactly once, got %d", got)
	}
	if f.prefetch.invalidated == 0 {
		t.Fatal("close must invalidate pending prefetches")
	}
	if snap := f.player.Snapshot(); snap.State != domain.StateClosed {
		t.Fatalf("expected Closed, got %s", snap.StateName)
	}

	// Events after close are dead.
	f.player.Advance()
	f.player.MediaReady("alice-s0", 0)
	f.clock.Advance(time.Hour)
	if records := f.recorder.all(); len(records) != 0 {
		t.Fatalf("closed player must not record, got %v", records)
	}
	if err := f.player.Open(imageGroup("bob", 1), 0, 0); !errors.Is(err, player.ErrClosed) {
		t.Fatalf("expected ErrClosed on reopen, got %v", err)
	}
}

func TestMediaErrorDuringGroupHandoffAdvancesOnce(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 2)

	_ = f.player.Open(group, 0, 1)
	f.player.MediaReady("alice-s1", 0)

	// Advancing past the last item leaves the player in Advancing until the
	// controller reopens it. An error event landing in that window must not
	// advance the same item again.
	f.player.Advance()
	f.player.MediaError("alice-s1", errors.New("cdn returned 503"))

	if navs := f.log.navigations(); len(navs) != 1 || navs[0] != domain.DirectionNext {
		t.Fatalf("expected exactly one group navigation, got %v", navs)
	}
	if records := f.recorder.all(); len(records) != 1 {
		t.Fatalf("expected a single view record, got %d", len(records))
	}
}

func TestStaleCountdownCannotSkipReplacementItem(t *testing.T) {
	f := newFixture(t, 0)
	group := imageGroup("alice", 3)

	_ = f.player.Open(group, 0, 0)
	f.player.MediaReady("alice-s0", 0)
	f.clock.Advance(14 * time.Second)

	// Manual advance replaces the item just before the old countdown would
	// have fired. The old timer must not advance the new item.
	f.player.Advance()
	f.player.MediaReady("alice-s1", 0)
	f.clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)

	if snap := f.player.Snapshot(); snap.ItemIndex != 1 {
		t.Fatalf("stale countdown advanced the session, now at item %d", snap.ItemIndex)
	}
}

func TestWatchdogSkipsItemThatNeverLoads(t *testing.T) {
	f := newFixture(t, 10)
	group := imageGroup("alice", 2)

	_ = f.player.Open(group, 0, 0)
	f.clock.Advance(10 * time.Second)

	deadline := time.After(2 * time.Second)
	for {
		if snap := f.player.Snapshot(); snap.ItemIndex == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watchdog never skipped the stuck item")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if records := f.recorder.all(); len(records) != 0 {
		t.Fatalf("watchdog skip must not record a view, got %v", records)
	}
}

func TestWatchdogDisarmedByMediaReady(t *testing.T) {
	f := newFixture(t, 10)
	_ = f.player.Open(imageGroup("alice", 2), 0, 0)

	f.player.MediaReady("alice-s0", 0)
	f.clock.Advance(10 * time.Second)
	time.Sleep(50 * time.Millisecond)

	// Only 10 of the 15 countdown seconds elapsed, so the session must still
	// be on item 0 and playing.
	if snap := f.player.Snapshot(); snap.ItemIndex != 0 || snap.State != domain.StatePlaying {
		t.Fatalf("watchdog fired after media became ready: item %d in %s",
			snap.ItemIndex, snap.StateName)
	}
}
