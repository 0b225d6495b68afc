package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside/internal/auth/ratelimit"
	"github.com/courtsidehq/courtside/internal/auth/store"
)

// HousekeepingService periodically evicts dead state: expired unlocked
// rate-limit entries (in-process drivers only) and expired verification/reset
// token columns.
type HousekeepingService struct {
	Store    store.Store
	Sweeper  ratelimit.Sweeper // nil when the limiter driver expires its own keys
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, sweeper ratelimit.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Sweeper:  sweeper,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual eviction. The two steps are independent -
// a failure in one won't stop the other.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Info("starting housekeeping cleanup")

	if s.Sweeper != nil {
		removed := s.Sweeper.Sweep()
		s.Logger.Debug("swept rate limit entries", "removed", removed)
	}

	if err := s.Store.Users().ClearExpiredTokens(ctx, time.Now().UTC()); err != nil {
		s.Logger.Error("failed to clear expired tokens", "error", err)
	} else {
		s.Logger.Debug("cleared expired verification and reset tokens")
	}

	s.Logger.Info("housekeeping cleanup completed")
}
