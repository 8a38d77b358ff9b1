package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lesson-insights-go/internal/joblock"
	"lesson-insights-go/internal/logger"
)

// State of a registered job.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the observable state of one job.
type Status struct {
	Name       string    `json:"name"`
	State      State     `json:"state"`
	LastRunID  string    `json:"last_run_id,omitempty"`
	LastStart  time.Time `json:"last_start,omitempty"`
	LastFinish time.Time `json:"last_finish,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Registry tracks job state explicitly instead of fire-and-forget spawning,
// and serializes runs of the same job through the file lock.
type Registry struct {
	lockDir string

	mu   sync.Mutex
	jobs map[string]*registered
}

type registered struct {
	fn     func() error
	status Status
}

func NewRegistry(lockDir string) *Registry {
	return &Registry{
		lockDir: lockDir,
		jobs:    map[string]*registered{},
	}
}

// Register adds a job under its name, starting idle.
func (r *Registry) Register(name string, fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[name] = &registered{
		fn:     fn,
		status: Status{Name: name, State: StateIdle},
	}
}

// Run executes the named job synchronously under its file lock, updating
// its state through the run.
func (r *Registry) Run(name string) error {
	r.mu.Lock()
	job, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown job %q", name)
	}
	if job.status.State == StateRunning {
		r.mu.Unlock()
		logger.New().WithField("job", name).Warn("job already running, skipping")
		return nil
	}
	prev := job.status
	runID := uuid.New().String()
	job.status.State = StateRunning
	job.status.LastRunID = runID
	job.status.LastStart = time.Now()
	job.status.LastError = ""
	r.mu.Unlock()

	err := joblock.WithLock(r.lockDir, name, job.fn)

	r.mu.Lock()
	if errors.Is(err, joblock.ErrHeld) {
		// A run skipped by the file lock never started; keep the prior
		// state instead of recording a phantom success.
		job.status = prev
		r.mu.Unlock()
		logger.New().WithField("job", name).Warn("run skipped, lock held by another process")
		return nil
	}
	job.status.LastFinish = time.Now()
	if err != nil {
		job.status.State = StateFailed
		job.status.LastError = err.Error()
	} else {
		job.status.State = StateSucceeded
	}
	r.mu.Unlock()
	return err
}

// Trigger starts the named job in the background and returns its run state
// snapshot immediately.
func (r *Registry) Trigger(name string) (Status, error) {
	r.mu.Lock()
	job, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return Status{}, fmt.Errorf("unknown job %q", name)
	}
	status := job.status
	r.mu.Unlock()

	go func() {
		if err := r.Run(name); err != nil {
			logger.New().WithField("job", name).WithError(err).Error("triggered job failed")
		}
	}()
	return status, nil
}

// Snapshot returns the current status of every registered job.
func (r *Registry) Snapshot() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.status)
	}
	return out
}
