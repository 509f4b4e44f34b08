package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

const tokenValidationLock = "token-validation"

// TokenValidator is the part of the connector service the scheduler drives.
type TokenValidator interface {
	ValidateConnectorTokens(ctx context.Context)
}

// TokenValidationScheduler runs ValidateConnectorTokens periodically.
//
// For multi-instance deployments, configure a DistributedLock so that only
// one instance validates per cycle.
type TokenValidationScheduler struct {
	validator TokenValidator
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL      time.Duration
	lockRequired bool
}

// TokenValidationSchedulerConfig holds configuration for the scheduler.
type TokenValidationSchedulerConfig struct {
	Validator    TokenValidator
	Lock         driven.DistributedLock // Optional
	Logger       *slog.Logger
	Interval     time.Duration // default: 15m
	LockTTL      time.Duration // default: 5m
	LockRequired bool          // skip the cycle when the lock backend errors
}

// NewTokenValidationScheduler creates a new scheduler.
func NewTokenValidationScheduler(cfg TokenValidationSchedulerConfig) *TokenValidationScheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}

	return &TokenValidationScheduler{
		validator:    cfg.Validator,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
	}
}

// Start begins the scheduler loop. It runs until Stop is called or ctx is
// cancelled. Calling Start on a running scheduler is a no-op.
func (s *TokenValidationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("token validation scheduler starting", "interval", s.interval)

	go s.run(ctx)
	return nil
}

// Stop waits for the loop to exit.
func (s *TokenValidationScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("token validation scheduler stopped")
}

func (s *TokenValidationScheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("token validation scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one validation cycle, taking the distributed lock first
// when one is configured.
func (s *TokenValidationScheduler) RunOnce(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, tokenValidationLock, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("failed to acquire token validation lock", "error", err)
			if s.lockRequired {
				return
			}
		case !acquired:
			s.logger.Debug("token validation lock held by another instance, skipping cycle")
			return
		default:
			defer func() {
				if err := s.lock.Release(ctx, tokenValidationLock); err != nil {
					s.logger.Warn("failed to release token validation lock", "error", err)
				}
			}()
		}
	}

	s.validator.ValidateConnectorTokens(ctx)
}
