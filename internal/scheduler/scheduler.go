// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic tagging pass on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/lingotag/lingotag/internal/reconcile"
)

// Scheduler triggers the tagging-and-reconciliation pass on a cron
// expression, skipping a tick when the previous pass is still running.
type Scheduler struct {
	engine   *reconcile.Engine
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	running  sync.Mutex
}

// New creates a scheduler. schedule is a standard 5-field cron expression.
func New(engine *reconcile.Engine, schedule string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the tagging job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runPass)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunNow triggers a tagging pass outside the schedule. Used at startup so
// content is tagged before the first cron tick.
func (s *Scheduler) RunNow(ctx context.Context) (reconcile.Summary, error) {
	s.running.Lock()
	defer s.running.Unlock()
	return s.engine.Run(ctx)
}

func (s *Scheduler) runPass() {
	if !s.running.TryLock() {
		s.logger.Warn("tagging pass still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	if _, err := s.engine.Run(context.Background()); err != nil {
		s.logger.Error("tagging pass failed", "error", err)
	}
}
