package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultWarmupSchedule runs the lesson warm-up every night
const DefaultWarmupSchedule = "0 3 * * *"

// warmupTimeout bounds a single warm-up sweep
const warmupTimeout = 5 * time.Minute

// WarmupService defines the interface for the lesson warm-up
type WarmupService interface {
	// EnqueueWarmup queues the generation of every lesson that is not stored yet
	//
	// Returns the number of queued lessons and an error if any.
	EnqueueWarmup(ctx context.Context) (int, error)
}

// Scheduler runs periodic lesson jobs
type Scheduler struct {
	cron     *cron.Cron
	warmup   WarmupService
	schedule string
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance.
//
// An empty "schedule" uses DefaultWarmupSchedule.
func NewScheduler(warmup WarmupService, schedule string, location *time.Location, logger *zap.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultWarmupSchedule
	}
	if location == nil {
		location = time.UTC
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		warmup:   warmup,
		schedule: schedule,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.runWarmup); err != nil {
		return nil, fmt.Errorf("invalid warmup schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("warmup_schedule", s.schedule))
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// runWarmup queues generation for every lesson that is not stored yet
func (s *Scheduler) runWarmup() {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()

	queued, err := s.warmup.EnqueueWarmup(ctx)
	if err != nil {
		s.logger.Error("Lesson warmup failed", zap.Int("queued", queued), zap.Error(err))
		return
	}
	s.logger.Info("Lesson warmup finished", zap.Int("queued", queued))
}
