// Package pool runs batches of independent tasks across a fixed set of
// workers, keeping per-task timing so long runs can report throughput per
// worker at the end.
package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saber-data/saber/internal/monitoring"
)

// Result records one finished task. Failed tasks carry their error; the
// batch keeps going so one bad input does not waste the rest of the run.
type Result struct {
	TaskID   int
	Worker   int
	Duration time.Duration
	Err      error
}

// Stats summarizes a finished batch.
type Stats struct {
	Tasks     int
	Failed    int
	Elapsed   time.Duration
	TaskTime  time.Duration // summed task durations across workers
	PerWorker []int         // tasks completed per worker
}

// Runner distributes tasks over Workers goroutines.
type Runner struct {
	Workers int
}

// Run executes fn for task IDs 0..numTasks-1. Each invocation gets the ID
// of the worker it runs on, so callers can bind workers to devices or
// model sessions. Task errors are recorded in the results, not returned;
// Run itself fails only on context cancellation.
func (r *Runner) Run(ctx context.Context, numTasks int, fn func(ctx context.Context, taskID, worker int) error) (Stats, []Result, error) {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > numTasks && numTasks > 0 {
		workers = numTasks
	}

	tasks := make(chan int)
	results := make([]Result, 0, numTasks)
	var mu sync.Mutex

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(tasks)
		for i := 0; i < numTasks; i++ {
			select {
			case tasks <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		worker := w
		g.Go(func() error {
			for taskID := range tasks {
				taskStart := time.Now()
				err := fn(gctx, taskID, worker)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				results = append(results, Result{
					TaskID:   taskID,
					Worker:   worker,
					Duration: time.Since(taskStart),
					Err:      err,
				})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, nil, fmt.Errorf("batch canceled: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].TaskID < results[j].TaskID })

	stats := Stats{
		Tasks:     len(results),
		Elapsed:   time.Since(start),
		PerWorker: make([]int, workers),
	}
	for _, res := range results {
		stats.TaskTime += res.Duration
		stats.PerWorker[res.Worker]++
		if res.Err != nil {
			stats.Failed++
		}
	}
	return stats, results, nil
}

// Report logs a one-line summary plus per-worker throughput.
func (s Stats) Report(label string) {
	monitoring.Logf("%s: %d tasks (%d failed) in %v, %v of compute across %d workers",
		label, s.Tasks, s.Failed, s.Elapsed.Round(time.Millisecond),
		s.TaskTime.Round(time.Millisecond), len(s.PerWorker))
	for w, n := range s.PerWorker {
		monitoring.Logf("%s: worker %d completed %d tasks", label, w, n)
	}
}
