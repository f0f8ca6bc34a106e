package zag

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskState is the observable state of an export Task.
type TaskState uint8

const (
	TaskEncoding TaskState = iota
	TaskSucceeded
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskEncoding:
		return "encoding"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is a handle to one in-flight export. It resolves exactly once.
// There is no way to cancel a Task.
type Task struct {
	id    string
	now   func() time.Time
	start time.Time
	done  chan struct{}

	mu     sync.Mutex
	state  TaskState
	end    time.Time
	result Result
	err    error
}

func newTask(now func() time.Time) *Task {
	return &Task{
		id:    uuid.NewString(),
		now:   now,
		start: now(),
		done:  make(chan struct{}),
	}
}

// ID identifies the export in log records.
func (t *Task) ID() string {
	return t.id
}

// Done is closed when the task has succeeded or failed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// State returns the current state.
func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed returns the time spent so far, or the total once resolved.
func (t *Task) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TaskEncoding {
		return t.now().Sub(t.start)
	}
	return t.end.Sub(t.start)
}

// Wait blocks until the task resolves or ctx is done. Giving up on ctx does
// not stop the export.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Err returns the failure once the task has failed, and nil otherwise.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) resolve(res Result, err error) {
	t.mu.Lock()
	t.end = t.now()
	if err != nil {
		t.state = TaskFailed
		t.err = err
	} else {
		res.Elapsed = t.end.Sub(t.start)
		t.state = TaskSucceeded
		t.result = res
	}
	t.mu.Unlock()
	close(t.done)
}
