package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunCompletesAllTasks(t *testing.T) {
	var count atomic.Int64
	r := &Runner{Workers: 4}
	stats, results, err := r.Run(context.Background(), 20, func(ctx context.Context, taskID, worker int) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count.Load() != 20 || stats.Tasks != 20 || len(results) != 20 {
		t.Errorf("completed %d tasks, stats %d, results %d, want 20", count.Load(), stats.Tasks, len(results))
	}
	if stats.Failed != 0 {
		t.Errorf("failed = %d, want 0", stats.Failed)
	}
	// Results come back in task order regardless of scheduling.
	for i, res := range results {
		if res.TaskID != i {
			t.Fatalf("result %d has task id %d", i, res.TaskID)
		}
	}
	total := 0
	for _, n := range stats.PerWorker {
		total += n
	}
	if total != 20 {
		t.Errorf("per-worker counts sum to %d, want 20", total)
	}
}

func TestRunRecordsTaskErrors(t *testing.T) {
	bad := errors.New("corrupt input")
	r := &Runner{Workers: 2}
	stats, results, err := r.Run(context.Background(), 5, func(ctx context.Context, taskID, worker int) error {
		if taskID == 3 {
			return bad
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
	if results[3].Err == nil || results[0].Err != nil {
		t.Errorf("errors landed on wrong tasks: %v / %v", results[3].Err, results[0].Err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{Workers: 2}
	_, _, err := r.Run(ctx, 100, func(ctx context.Context, taskID, worker int) error {
		if taskID == 0 {
			cancel()
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRunZeroWorkersDefaultsToOne(t *testing.T) {
	r := &Runner{}
	stats, _, err := r.Run(context.Background(), 3, func(ctx context.Context, taskID, worker int) error {
		if worker != 0 {
			t.Errorf("worker = %d, want 0", worker)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats.PerWorker) != 1 {
		t.Errorf("workers = %d, want 1", len(stats.PerWorker))
	}
}

func TestRunNoTasks(t *testing.T) {
	r := &Runner{Workers: 2}
	stats, results, err := r.Run(context.Background(), 0, func(ctx context.Context, taskID, worker int) error {
		t.Error("fn called with no tasks")
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Tasks != 0 || len(results) != 0 {
		t.Errorf("stats = %+v with %d results, want empty", stats, len(results))
	}
}
