package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type testJob struct {
	fn func(ctx context.Context) Result
}

func (j *testJob) Execute(ctx context.Context) Result { return j.fn(ctx) }

type testResult struct {
	value int
	err   error
}

func (r *testResult) GetError() error { return r.err }

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(3)
	pool.Start()

	var ran int64
	for i := 0; i < 10; i++ {
		i := i
		pool.Submit(&testJob{fn: func(ctx context.Context) Result {
			atomic.AddInt64(&ran, 1)
			return &testResult{value: i}
		}})
	}

	results := pool.Wait()
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	if ran != 10 {
		t.Errorf("ran %d jobs, want 10", ran)
	}
}

func TestPoolIsolatesErrors(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&testJob{fn: func(ctx context.Context) Result {
		return &testResult{err: errors.New("bad document")}
	}})
	pool.Submit(&testJob{fn: func(ctx context.Context) Result {
		return &testResult{value: 1}
	}})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed results, want 1", failed)
	}
}

func TestPoolIsolatesPanics(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&testJob{fn: func(ctx context.Context) Result {
		panic("boom")
	}})
	pool.Submit(&testJob{fn: func(ctx context.Context) Result {
		return &testResult{value: 1}
	}})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2; a panic cancelled siblings", len(results))
	}

	panicked := 0
	for _, r := range results {
		if r.GetError() != nil {
			panicked++
		}
	}
	if panicked != 1 {
		t.Errorf("got %d failed results, want 1 from the panic", panicked)
	}
}

func TestPoolZeroWorkers(t *testing.T) {
	pool := NewPool(0)
	pool.Start()

	pool.Submit(&testJob{fn: func(ctx context.Context) Result {
		return &testResult{value: 1}
	}})
	if results := pool.Wait(); len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}
