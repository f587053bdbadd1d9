package app

import (
	"context"
	"database/sql"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/orgball2608/story-playback-engine/internal/cache"
	"github.com/orgball2608/story-playback-engine/internal/catalog"
	"github.com/orgball2608/story-playback-engine/internal/feed"
	"github.com/orgball2608/story-playback-engine/internal/feed/feedimpl"
	"github.com/orgball2608/story-playback-engine/internal/metrics"
	_ "github.com/orgball2608/story-playback-engine/internal/migrations"
	"github.com/orgball2608/story-playback-engine/internal/player/playerimpl"
	"github.com/orgball2608/story-playback-engine/internal/prefetch"
	repositories "github.com/orgball2608/story-playback-engine/internal/repositories/fx"
	"github.com/orgball2608/story-playback-engine/internal/server"
	"github.com/orgball2608/story-playback-engine/internal/session"
	"github.com/orgball2608/story-playback-engine/internal/session/sessionimpl"
	"github.com/orgball2608/story-playback-engine/internal/viewstatus"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"github.com/orgball2608/story-playback-engine/pkg/pgx"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		prometheus.NewRegistry,
		func() clockwork.Clock { return clockwork.NewRealClock() },
	),
	fx.Provide(
		func(reg *prometheus.Registry) metrics.Collector {
			return metrics.NewCollector(reg)
		},
	),
	cache.Module,
	repositories.Module,
	fx.Provide(
		fx.Annotate(
			feedimpl.New,
			fx.As(new(feed.Client)),
		),
		fx.Annotate(
			prefetch.NewHTTPFetcher,
			fx.As(new(prefetch.Fetcher)),
		),
		fx.Annotate(
			prefetch.New,
			fx.As(new(prefetch.Manager)),
		),
		viewstatus.New,
		func(s *viewstatus.Service) viewstatus.Recorder { return s },
		func(s *viewstatus.Service) viewstatus.Checker { return s },
		catalog.NewService,
		playerimpl.NewFactory,
		fx.Annotate(
			sessionimpl.New,
			fx.As(new(session.Controller)),
		),
		server.New,
	),
	fx.Invoke(
		func(c *config.Config) error {
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}

			db, err := sql.Open("postgres", c.GetDSN())
			if err != nil {
				return err
			}
			defer db.Close()

			// Go migrations are registered by the blank import; the
			// directory argument only scopes SQL files.
			return goose.Up(db, ".")
		}),
	fx.Invoke(func(*server.Server) {}),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, cat *catalog.Service, views *viewstatus.Service) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Feed.URL != "" {
				if err := cat.Refresh(ctx); err != nil {
					// The catalog endpoint can refresh later; keep booting.
					log.Warn("Initial catalog refresh failed", "error", err)
				}
			}

			if err := views.ScheduleReconcile(runCtx, cfg); err != nil {
				log.Error("Failed to schedule view record reconciliation", "error", err)
				return err
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
