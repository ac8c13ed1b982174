// Package maintenance runs periodic upkeep of the fetch journal.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config contains maintenance service configuration
type Config struct {
	// CleanupInterval is how often to prune the journal
	CleanupInterval time.Duration

	// Retention is the maximum age of journal entries; 0 keeps them forever
	Retention time.Duration
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		CleanupInterval: time.Hour,
		Retention:       30 * 24 * time.Hour,
	}
}

// Pruner deletes old journal entries
type Pruner interface {
	Prune(olderThan time.Duration) (int, error)
}

// Service handles periodic maintenance tasks
type Service struct {
	config  *Config
	journal Pruner
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service
func New(cfg *Config, journal Pruner, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}

	return &Service{
		config:  cfg,
		journal: journal,
		logger:  logger,
	}
}

// Start runs the maintenance loop until ctx is done or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("cleanup_interval", s.config.CleanupInterval),
		zap.Duration("retention", s.config.Retention))

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	cleanupTicker := time.NewTicker(s.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			s.pruneJournal()
		}
	}
}

// pruneJournal removes journal entries past the retention window
func (s *Service) pruneJournal() {
	if s.config.Retention <= 0 {
		return
	}

	removed, err := s.journal.Prune(s.config.Retention)
	if err != nil {
		s.logger.Error("failed to prune journal", zap.Error(err))
	} else if removed > 0 {
		s.logger.Info("pruned old journal entries", zap.Int("count", removed))
	}
}
