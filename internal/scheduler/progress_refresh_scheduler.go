package scheduler

import (
	"context"
	"time"

	"github.com/konveksi/admin-gateway/internal/app/service"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/pkg/logger"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 2 * time.Minute

// ProgressRefreshScheduler periodically reloads the progress of orders that
// dashboards are watching, so changes made elsewhere reach them.
type ProgressRefreshScheduler struct {
	cron            *cron.Cron
	progressService service.ProgressService
	spec            string
	window          time.Duration
	serviceToken    string
	now             func() time.Time
}

func NewProgressRefreshScheduler(progressService service.ProgressService, spec string, window time.Duration, serviceToken string) *ProgressRefreshScheduler {
	return &ProgressRefreshScheduler{
		cron:            cron.New(),
		progressService: progressService,
		spec:            spec,
		window:          window,
		serviceToken:    serviceToken,
		now:             time.Now,
	}
}

// Start registers the refresh job and starts the cron runner.
func (s *ProgressRefreshScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for progress refresh", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Progress refresh scheduler started", map[string]interface{}{
		"spec":   s.spec,
		"window": s.window.String(),
	})
	return nil
}

// RunOnce refreshes every order viewed within the watch window.
func (s *ProgressRefreshScheduler) RunOnce(ctx context.Context) int {
	if s.serviceToken != "" {
		ctx = upstream.WithToken(ctx, s.serviceToken)
	}

	started := s.now()
	refreshed, err := s.progressService.RefreshWatched(ctx, started.Add(-s.window))
	if err != nil {
		logger.Error("Scheduled progress refresh failed", err)
		return 0
	}

	if refreshed > 0 {
		logger.Info("Refreshed watched orders", map[string]interface{}{
			"orders":     refreshed,
			"elapsed_ms": time.Since(started).Milliseconds(),
		})
	}
	return refreshed
}

func (s *ProgressRefreshScheduler) Stop() {
	logger.Info("Stopping progress refresh scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Progress refresh scheduler stopped")
}
