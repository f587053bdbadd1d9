package sessionimpl

import (
	"sync"

	"github.com/google/uuid"
	"github.com/orgball2608/story-playback-engine/internal/catalog"
	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/metrics"
	"github.com/orgball2608/story-playback-engine/internal/player"
	"github.com/orgball2608/story-playback-engine/internal/session"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Factory player.Factory
	Catalog *catalog.Service
	Logger  logger.Logger
	Metrics metrics.Collector
}

type Impl struct {
	factory player.Factory
	catalog *catalog.Service
	logger  logger.Logger
	metrics metrics.Collector

	mu         sync.Mutex
	sessionID  string
	groups     []domain.PublisherGroup
	groupIndex int
	player     player.Client
	open       bool
}

func New(opts Opts) *Impl {
	return &Impl{
		factory: opts.Factory,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

var _ session.Controller = (*Impl)(nil)

// Open starts a session at (groupIndex, itemIndex). The catalog is snapshotted
// for the session's lifetime so a concurrent refresh cannot shift indices
// under a running player.
func (c *Impl) Open(groupIndex, itemIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return session.ErrSessionOpen
	}

	groups := c.catalog.Groups()
	if len(groups) == 0 {
		return session.ErrEmptyCatalog
	}
	if groupIndex < 0 || groupIndex >= len(groups) {
		return session.ErrInvalidIndex
	}

	pl := c.factory(player.Callbacks{
		OnItemComplete:  c.onItemComplete,
		OnNavigateGroup: c.Navigate,
		OnSessionClose:  c.onSessionClose,
	})

	if err := pl.Open(groups[groupIndex], groupIndex, itemIndex); err != nil {
		return err
	}

	c.sessionID = uuid.NewString()
	c.groups = groups
	c.groupIndex = groupIndex
	c.player = pl
	c.open = true

	c.metrics.RecordSessionOpened()
	c.metrics.SetSessionOpen(true)
	c.logger.Info("Playback session opened",
		"session_id", c.sessionID,
		"group_index", groupIndex,
		"item_index", itemIndex,
	)
	return nil
}

// Navigate moves the session to an adjacent group: next lands on its first
// item, prev on its last. Past the final group the session closes; before the
// first group nothing happens.
func (c *Impl) Navigate(direction domain.Direction) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}

	target := c.groupIndex + 1
	if direction == domain.DirectionPrev {
		target = c.groupIndex - 1
	}

	if target < 0 {
		c.mu.Unlock()
		return
	}
	if target >= len(c.groups) {
		pl := c.player
		c.mu.Unlock()
		// Close re-enters through onSessionClose; the lock must be free.
		pl.Close()
		return
	}

	group := c.groups[target]
	itemIndex := 0
	if direction == domain.DirectionPrev {
		itemIndex = len(group.Items) - 1
	}

	pl := c.player
	c.groupIndex = target
	c.mu.Unlock()

	if err := pl.Open(group, target, itemIndex); err != nil {
		c.logger.Error("Failed to open adjacent group, closing session",
			"direction", string(direction),
			"group_index", target,
			"error", err,
		)
		pl.Close()
	}
}

func (c *Impl) Close() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	pl := c.player
	c.mu.Unlock()

	pl.Close()
}

func (c *Impl) Snapshot() (domain.SessionSnapshot, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return domain.SessionSnapshot{}, session.ErrNoSession
	}
	pl := c.player
	sessionID := c.sessionID
	c.mu.Unlock()

	snapshot := pl.Snapshot()
	snapshot.SessionID = sessionID
	return snapshot, nil
}

func (c *Impl) CurrentPlayer() (player.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, session.ErrNoSession
	}
	return c.player, nil
}

func (c *Impl) onItemComplete(storyID string, completed bool) {
	c.logger.Debug("Item transition", "story_id", storyID, "completed", completed)
}

func (c *Impl) onSessionClose() {
	c.mu.Lock()
	sessionID := c.sessionID
	c.open = false
	c.player = nil
	c.groups = nil
	c.mu.Unlock()

	c.metrics.SetSessionOpen(false)
	c.logger.Info("Playback session closed", "session_id", sessionID)
}
