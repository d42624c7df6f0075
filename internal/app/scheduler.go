package app

import (
	"context"
	"time"

	"testhub_backend/internal/service"
	"testhub_backend/pkg/logger"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Scheduler runs the incomplete-attempt sweep.
type Scheduler struct {
	scheduler *gocron.Scheduler
	attempts  *service.TestAttemptService
}

func NewScheduler(attempts *service.TestAttemptService) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, attempts: attempts}
}

// Start schedules the sweep every intervalMinutes and returns immediately.
func (s *Scheduler) Start(intervalMinutes int) error {
	if intervalMinutes <= 0 {
		intervalMinutes = 5
	}
	if _, err := s.scheduler.Every(intervalMinutes).Minutes().Do(s.sweep); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Log.Info("Incomplete attempt sweep scheduled", zap.Int("intervalMinutes", intervalMinutes))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	closed, err := s.attempts.SweepIncomplete(ctx)
	if err != nil {
		logger.Log.Error("Incomplete attempt sweep failed", zap.Error(err))
		return
	}
	if closed > 0 {
		logger.Log.Info("Incomplete attempt sweep finished", zap.Int64("closed", closed))
	}
}
