package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/orgball2608/story-playback-engine/internal/catalog"
	"github.com/orgball2608/story-playback-engine/internal/session"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Server is the hosting-screen stand-in: platform media callbacks and user
// taps arrive over HTTP and are forwarded to the session controller.
type Server struct {
	catalog    *catalog.Service
	controller session.Controller
	logger     logger.Logger
}

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Catalog    *catalog.Service
	Controller session.Controller
	Logger     logger.Logger
	Config     *config.Config
	Registry   *prometheus.Registry
}

func New(opts Opts) *Server {
	s := &Server{
		catalog:    opts.Catalog,
		controller: opts.Controller,
		logger:     opts.Logger,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Config.App.Port),
		Handler:           s.Router(opts.Registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	opts.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				opts.Logger.Info("Starting HTTP server", "addr", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					opts.Logger.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})

	return s
}

func (s *Server) Router(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleGetCatalog)
		r.Post("/catalog/refresh", s.handleRefreshCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleOpenSession)
			r.Get("/current", s.handleGetSession)
			r.Delete("/current", s.handleCloseSession)
			r.Post("/current/events", s.handleSessionEvent)
		})
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
