package viewstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/orgball2608/story-playback-engine/pkg/config"
)

// ScheduleReconcile sets up a periodic job that flushes pending local view
// records to the remote store.
func (s *Service) ScheduleReconcile(ctx context.Context, cfg *config.Config) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create reconcile scheduler: %w", err)
	}

	interval := time.Duration(cfg.Playback.ReconcileIntervalMinute) * time.Minute
	viewerID := cfg.Playback.ViewerID

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.logger.Info("Context cancelled, stopping view record reconciliation")
				return
			}

			taskCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()

			if err := s.Reconcile(taskCtx, viewerID); err != nil {
				s.logger.Error("View record reconciliation failed", "error", err)
				return
			}
			s.logger.Debug("View record reconciliation completed")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule view record reconciliation: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.logger.Info("Stopping reconcile scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.logger.Error("Failed to shut down reconcile scheduler", "error", err)
		}
	}()

	return nil
}
