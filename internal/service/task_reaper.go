package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/repository"
)

// TaskReaper periodically removes completed tasks belonging to verified
// accounts. Unverified accounts keep theirs until they confirm; their data
// is not touched by background cleanup.
type TaskReaper struct {
	repo     repository.TaskRepository
	logger   *slog.Logger
	interval time.Duration
}

func NewTaskReaper(repo repository.TaskRepository, logger *slog.Logger, interval time.Duration) *TaskReaper {
	return &TaskReaper{repo: repo, logger: logger, interval: interval}
}

// Run blocks until ctx is cancelled, reaping on every tick.
func (r *TaskReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("task reaper started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("task reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "task reaper sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many tasks went away.
func (r *TaskReaper) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := r.repo.DeleteCompletedForVerified()
	if err != nil {
		return 0, err
	}
	observability.RecordTaskReaperDeleted(ctx, deleted)
	if deleted > 0 {
		r.logger.InfoContext(ctx, "completed tasks reaped", "deleted", deleted)
	}
	return deleted, nil
}
