// Package scheduler triggers periodic compliance check runs.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aegisshield/readiness-engine/internal/config"
	"github.com/aegisshield/readiness-engine/internal/orchestrator"
)

// Scheduler runs the orchestrator on a cron schedule.
type Scheduler struct {
	cfg     config.ScheduleConfig
	orch    *orchestrator.Orchestrator
	logger  *zap.Logger
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for the given orchestrator.
func NewScheduler(cfg config.ScheduleConfig, orch *orchestrator.Orchestrator, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:    cfg,
		orch:   orch,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the scheduled run and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if !s.cfg.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		s.logger.Info("Scheduled check run starting", zap.String("cron", s.cfg.Cron))
		if _, err := s.orch.Run(ctx); err != nil {
			s.logger.Error("Scheduled check run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cfg.Cron, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", zap.String("cron", s.cfg.Cron))
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Scheduler stopped")
}
