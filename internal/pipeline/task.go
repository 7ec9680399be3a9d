// Package pipeline runs the ETL and reporting steps as a background task
// whose progress and outcome can be observed.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"student-analytics/internal/logging"
)

type State string

const (
	Idle      State = "idle"
	Running   State = "running"
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

var ErrAlreadyRunning = errors.New("pipeline run already in progress")

// Result is what a successful run reports back.
type Result struct {
	Rows    int      `json:"rows"`
	Outcome string   `json:"outcome,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Reports []string `json:"reports,omitempty"`
}

// Job performs one run.
type Job func(ctx context.Context) (Result, error)

// Status is a snapshot of the task.
type Status struct {
	State      State      `json:"state"`
	RunID      string     `json:"run_id,omitempty"`
	Trigger    string     `json:"trigger,omitempty"`
	Runs       int        `json:"runs"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Result     *Result    `json:"result,omitempty"`
}

// Task runs a Job in the background, at most one run at a time.
type Task struct {
	job Job
	log logging.Logger
	now func() time.Time

	mu     sync.Mutex
	status Status
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewTask(job Job, log logging.Logger) *Task {
	done := make(chan struct{})
	close(done)
	return &Task{
		job:    job,
		log:    log,
		now:    time.Now,
		status: Status{State: Idle},
		done:   done,
	}
}

// Start launches a run and returns immediately. It returns
// ErrAlreadyRunning while a run is in progress.
func (t *Task) Start(ctx context.Context, trigger string) error {
	t.mu.Lock()
	if t.status.State == Running {
		t.mu.Unlock()
		return ErrAlreadyRunning
	}
	started := t.now()
	t.status = Status{
		State:     Running,
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		Runs:      t.status.Runs + 1,
		StartedAt: &started,
	}
	runID := t.status.RunID
	done := make(chan struct{})
	t.done = done
	t.wg.Add(1)
	t.mu.Unlock()

	t.log.Infof("pipeline: run %s started (%s)", runID, trigger)
	go func() {
		defer t.wg.Done()
		defer close(done)
		result, err := t.run(ctx)
		t.finish(result, err)
	}()
	return nil
}

func (t *Task) run(ctx context.Context) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("pipeline: run panicked")
			t.log.Errorf("pipeline: recovered from panic: %v", r)
		}
	}()
	return t.job(ctx)
}

func (t *Task) finish(result Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	finished := t.now()
	t.status.FinishedAt = &finished
	if err != nil {
		t.status.State = Failed
		t.status.Error = err.Error()
		t.log.Errorf("pipeline: run failed: %v", err)
		return
	}
	t.status.State = Succeeded
	t.status.Result = &result
	t.log.Infof("pipeline: run succeeded, %d rows (%s)", result.Rows, result.Outcome)
}

func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Done is closed when the current (or most recent) run finishes. It is
// already closed before the first run.
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Wait blocks until every started run has finished.
func (t *Task) Wait() {
	t.wg.Wait()
}
