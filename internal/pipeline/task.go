package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TaskStatus is the outcome of one task.
type TaskStatus string

const (
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusSkipped  TaskStatus = "skipped"
	TaskStatusFailed   TaskStatus = "failed"
)

// TaskResult records how a task ended.
type TaskResult struct {
	Name     string     `json:"name"`
	Status   TaskStatus `json:"status"`
	Duration int64      `json:"duration_ms"`
	Error    string     `json:"error,omitempty"`
}

// Task turns input files into output files.
type Task struct {
	Name    string
	Inputs  []string
	Outputs []string
	Run     func(ctx context.Context) error
}

// UpToDate reports whether every output exists and is at least as new as
// every input. A task without outputs is never up to date.
func (t Task) UpToDate() (bool, error) {
	if len(t.Outputs) == 0 {
		return false, nil
	}
	var oldest time.Time
	for i, out := range t.Outputs {
		info, err := os.Stat(out)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, eris.Wrapf(err, "pipeline: stat %s", out)
		}
		if i == 0 || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}
	for _, in := range t.Inputs {
		info, err := os.Stat(in)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, eris.Wrapf(err, "pipeline: stat %s", in)
		}
		if info.ModTime().After(oldest) {
			return false, nil
		}
	}
	return true, nil
}

// Runner executes tasks in order and stops at the first failure.
type Runner struct {
	// Force reruns tasks whose outputs are up to date.
	Force bool
}

// Run executes tasks sequentially.
func (r Runner) Run(ctx context.Context, tasks []Task) ([]TaskResult, error) {
	results := make([]TaskResult, 0, len(tasks))
	for _, t := range tasks {
		log := zap.L().With(zap.String("task", t.Name))
		if err := ctx.Err(); err != nil {
			return results, eris.Wrap(err, "pipeline: cancelled")
		}

		if !r.Force {
			fresh, err := t.UpToDate()
			if err != nil {
				return results, err
			}
			if fresh {
				log.Info("pipeline: task up to date")
				results = append(results, TaskResult{Name: t.Name, Status: TaskStatusSkipped})
				continue
			}
		}

		start := time.Now()
		err := t.Run(ctx)
		res := TaskResult{Name: t.Name, Duration: time.Since(start).Milliseconds()}
		if err != nil {
			res.Status = TaskStatusFailed
			res.Error = err.Error()
			results = append(results, res)
			log.Error("pipeline: task failed", zap.Int64("duration_ms", res.Duration), zap.Error(err))
			return results, eris.Wrapf(err, "pipeline: task %s", t.Name)
		}
		res.Status = TaskStatusComplete
		results = append(results, res)
		log.Info("pipeline: task complete", zap.Int64("duration_ms", res.Duration))
	}
	return results, nil
}
