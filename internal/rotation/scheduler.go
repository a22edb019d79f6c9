package rotation

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/sealbox/sealbox/internal/errors"
)

// DefaultInterval is the default time between scheduled rotations, roughly
// quarterly.
const DefaultInterval = 90 * 24 * time.Hour

// Scheduler triggers the coordinator on a fixed interval. On-demand triggers
// and scheduled ones share the coordinator's single-flight guard, so a
// scheduled run that collides with an administrative one is simply skipped.
type Scheduler struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      *slog.Logger
}

// NewScheduler creates a scheduler. A non-positive interval falls back to
// DefaultInterval.
func NewScheduler(coordinator *Coordinator, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		coordinator: coordinator,
		interval:    interval,
		logger:      logger,
	}
}

// Start runs the scheduling loop until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting rotation scheduler", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping rotation scheduler")
			return ctx.Err()
		case <-ticker.C:
			if err := s.coordinator.Run(ctx); err != nil {
				if apperrors.Is(err, ErrRotationInFlight) {
					s.logger.Warn("scheduled rotation skipped, run already in flight")
					continue
				}
				s.logger.Error("scheduled rotation failed", slog.Any("error", err))
			}
		}
	}
}
