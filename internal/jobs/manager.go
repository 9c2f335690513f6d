package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"teamsync/pkg/logging"
)

// Family identifies a group of jobs that are joined or cancelled together.
// Values are compared with == only and are never inspected.
type Family any

// Func is the body of a background job.
type Func func(ctx context.Context) error

// Job is a single background unit of work scheduled on a Manager.
type Job struct {
	// ID uniquely identifies this job run.
	ID string

	// Name is a human readable description used in logs.
	Name string

	// Family is the group this job belongs to.
	Family Family

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done returns a channel that is closed when the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job's result. It is only meaningful after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Manager runs background jobs and tracks them by family so that callers
// can join or cancel all the work belonging to one component.
type Manager struct {
	mu sync.Mutex

	// ctx is the parent of every job context
	ctx context.Context

	// cancelFunc cancels all jobs on shutdown
	cancelFunc context.CancelFunc

	// running holds the active jobs per family
	running map[Family]map[*Job]struct{}

	// idle is closed and replaced whenever a family drains to zero jobs
	idle map[Family]chan struct{}

	wg sync.WaitGroup

	shutdown bool
}

// NewManager creates a job manager whose jobs inherit from ctx.
func NewManager(ctx context.Context) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		ctx:        ctx,
		cancelFunc: cancel,
		running:    make(map[Family]map[*Job]struct{}),
		idle:       make(map[Family]chan struct{}),
	}
}

var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Default returns the process wide job manager.
func Default() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewManager(context.Background())
	})
	return defaultManager
}

// Schedule starts fn on its own goroutine as a member of family.
// It returns nil if the manager has been shut down.
func (m *Manager) Schedule(family Family, name string, fn Func) *Job {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		logging.Debug("Jobs", "Manager shut down, not scheduling %s", name)
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	job := &Job{
		ID:     uuid.New().String(),
		Name:   name,
		Family: family,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	jobs, ok := m.running[family]
	if !ok {
		jobs = make(map[*Job]struct{})
		m.running[family] = jobs
	}
	jobs[job] = struct{}{}
	if _, ok := m.idle[family]; !ok {
		m.idle[family] = make(chan struct{})
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(ctx, job, fn)
	return job
}

func (m *Manager) run(ctx context.Context, job *Job, fn Func) {
	defer m.wg.Done()
	defer m.finish(job)

	defer func() {
		if r := recover(); r != nil {
			job.err = fmt.Errorf("job %s panicked: %v", job.Name, r)
			logging.Error("Jobs", job.err, "Recovered from panic in job %s (%s)\n%s", job.Name, job.ID, debug.Stack())
		}
	}()

	logging.Debug("Jobs", "Running job %s (%s)", job.Name, job.ID)
	job.err = fn(ctx)
}

func (m *Manager) finish(job *Job) {
	job.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	close(job.done)

	jobs := m.running[job.Family]
	delete(jobs, job)
	if len(jobs) == 0 {
		delete(m.running, job.Family)
		if idle, ok := m.idle[job.Family]; ok {
			close(idle)
			delete(m.idle, job.Family)
		}
	}
}

// Running returns the number of running jobs in family.
func (m *Manager) Running(family Family) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running[family])
}

// Join blocks until no job of family is running or ctx is done.
// Jobs scheduled while joining extend the wait.
func (m *Manager) Join(ctx context.Context, family Family) error {
	for {
		m.mu.Lock()
		idle, busy := m.idle[family]
		m.mu.Unlock()

		if !busy {
			return nil
		}

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Cancel cancels the context of every running job in family.
func (m *Manager) Cancel(family Family) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for job := range m.running[family] {
		job.cancel()
	}
}

// Shutdown cancels all jobs, waits for them to return and refuses new ones.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	m.mu.Unlock()

	m.cancelFunc()
	m.wg.Wait()
}
