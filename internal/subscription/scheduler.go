// AngelaMos | 2026
// scheduler.go

package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/streampix/subscription-backend/internal/config"
)

const renewalRunTimeout = 10 * time.Minute

// Scheduler runs the renewal batch on a cron schedule. The same batch
// can also be triggered on demand through the renewal endpoint; both
// paths share the service's per-subscription isolation, so overlap is
// wasteful but harmless.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	cfg     config.SubscriptionConfig
	logger  *slog.Logger
}

func NewScheduler(
	service *Service,
	cfg config.SubscriptionConfig,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.RenewalEnabled {
		s.logger.Info("renewal scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.RenewalSchedule, s.run)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("renewal scheduler started",
		"schedule", s.cfg.RenewalSchedule,
	)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), renewalRunTimeout)
	defer cancel()

	renewed, processed, err := s.service.RenewDue(ctx)
	if err != nil {
		s.logger.Error("scheduled renewal run failed", "error", err)
		return
	}

	s.logger.Info("scheduled renewal run finished",
		"processed", processed,
		"renewed", len(renewed),
	)
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
