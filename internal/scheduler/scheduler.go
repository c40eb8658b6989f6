package scheduler

import (
	"context"
	"time"

	"github.com/kickabout-app/kickabout/common/logger"
)

// Task is a named job run on a fixed interval.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs registered tasks until stopped. Each task gets its own
// goroutine and ticker.
type Scheduler struct {
	tasks    []Task
	logger   *logger.Logger
	stopChan chan struct{}
}

func NewScheduler(logger *logger.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger.With("component", "Scheduler"),
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) Register(task Task) {
	s.tasks = append(s.tasks, task)
}

func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		go s.runLoop(ctx, task)
	}
	s.logger.Info("Scheduler started", "tasks", len(s.tasks))
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				s.logger.Error("Scheduled task failed",
					"task", task.Name,
					"error", err,
				)
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
