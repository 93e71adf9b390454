package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/inaiurai/fleetdispatch/internal/models"
	"github.com/inaiurai/fleetdispatch/internal/pool"
)

// GenerateTasksArgs asks for Count random room tasks to be added to the pool.
type GenerateTasksArgs struct {
	Count int `json:"count"`
}

func (GenerateTasksArgs) Kind() string { return "generate_tasks" }

// TaskGenerator produces tasks relative to now.
type TaskGenerator interface {
	Generate(now time.Time, n int) []models.Task
}

// TaskInserter is the pool the generated tasks go into.
type TaskInserter interface {
	Insert(t models.Task) error
}

type GenerateTasksWorker struct {
	river.WorkerDefaults[GenerateTasksArgs]
	generator TaskGenerator
	pool      TaskInserter
	now       func() time.Time
	log       *slog.Logger
}

func NewGenerateTasksWorker(g TaskGenerator, p TaskInserter, log *slog.Logger) *GenerateTasksWorker {
	if log == nil {
		log = slog.Default()
	}
	return &GenerateTasksWorker{generator: g, pool: p, now: time.Now, log: log}
}

// Work inserts the generated tasks. Duplicate IDs are skipped and logged; any
// other insert failure fails the job so river retries it.
func (w *GenerateTasksWorker) Work(ctx context.Context, job *river.Job[GenerateTasksArgs]) error {
	if job.Args.Count <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	inserted := 0
	for _, t := range w.generator.Generate(w.now(), job.Args.Count) {
		if err := w.pool.Insert(t); err != nil {
			if errors.Is(err, pool.ErrDuplicateID) {
				w.log.Warn("generated task skipped", "task_id", t.TaskID(), "error", err)
				continue
			}
			return fmt.Errorf("insert generated task %s: %w", t.TaskID(), err)
		}
		inserted++
	}
	w.log.Info("generated room tasks", "job_id", job.ID, "requested", job.Args.Count, "inserted", inserted)
	return nil
}
