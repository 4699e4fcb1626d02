package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/orinotech/timecapsule/internal/capsule/session"
	"github.com/orinotech/timecapsule/internal/capsule/store"
)

// DefaultUnverifiedMaxAge is how long an unverified account may linger
// before housekeeping removes it.
const DefaultUnverifiedMaxAge = 72 * time.Hour

// HousekeepingService periodically cleans up expired state so nothing
// grows without bound: stale in-memory sessions, accounts that never
// verified, and reset tokens past their lifetime.
type HousekeepingService struct {
	Store    store.Store
	Sessions *session.Registry
	Logger   *slog.Logger
	Interval time.Duration

	// UnverifiedMaxAge is the grace period before unverified accounts are
	// deleted. Zero means DefaultUnverifiedMaxAge.
	UnverifiedMaxAge time.Duration

	// ResetTokenTTL should match the PasswordResetService TTL so
	// housekeeping only clears tokens the reset flow already rejects.
	ResetTokenTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, sessions *session.Registry, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker and blocks until any in-progress cleanup
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

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

// cleanup runs every task independently so a failure in one does not
// stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Logger.Info("starting housekeeping cleanup")

	purged := s.Sessions.Purge()
	if purged > 0 {
		s.Logger.Debug("purged expired sessions", "count", purged)
	}

	unverifiedMaxAge := s.UnverifiedMaxAge
	if unverifiedMaxAge <= 0 {
		unverifiedMaxAge = DefaultUnverifiedMaxAge
	}
	if n, err := s.Store.Accounts().DeleteUnverifiedBefore(ctx, now.Add(-unverifiedMaxAge)); err != nil {
		s.Logger.Error("failed to delete stale unverified accounts", "error", err)
	} else if n > 0 {
		s.Logger.Debug("deleted stale unverified accounts", "count", n)
	}

	resetTTL := s.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	if n, err := s.Store.Accounts().ClearResetTokensBefore(ctx, now.Add(-resetTTL)); err != nil {
		s.Logger.Error("failed to clear expired reset tokens", "error", err)
	} else if n > 0 {
		s.Logger.Debug("cleared expired reset tokens", "count", n)
	}

	s.Logger.Info("housekeeping cleanup completed")
}
