package resolution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"teamsync/internal/errutil"
	"teamsync/pkg/logging"
)

// ErrInterrupted is returned when an operation is stopped through its
// context before it completed.
var ErrInterrupted = errors.New("operation interrupted")

// InvocationError wraps the failure of an operation.
type InvocationError struct {
	Task string
	Err  error
}

func (e *InvocationError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("operation failed: %v", e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Task, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Progress receives the progress of an operation.
type Progress interface {
	// Begin starts a task of total units of work. A total of zero or less
	// means the amount of work is unknown.
	Begin(task string, total int)
	// Worked reports n more units of work done.
	Worked(n int)
	// Done ends the current task.
	Done()
}

// Operation is a unit of work run by a Runner.
type Operation func(ctx context.Context, progress Progress) error

// Runner runs operations.
type Runner interface {
	Run(ctx context.Context, op Operation) error
}

// tracker is the Progress shared by the runners. It remembers the task so
// failures can be attributed.
type tracker struct {
	mu     sync.Mutex
	task   string
	total  int
	worked int

	onChange func(task string, worked, total int)
}

func (t *tracker) Begin(task string, total int) {
	t.mu.Lock()
	t.task, t.total, t.worked = task, total, 0
	t.mu.Unlock()
	t.notify()
}

func (t *tracker) Worked(n int) {
	t.mu.Lock()
	t.worked += n
	t.mu.Unlock()
	t.notify()
}

func (t *tracker) Done() {
	t.mu.Lock()
	if t.total > 0 {
		t.worked = t.total
	}
	t.mu.Unlock()
	t.notify()
}

func (t *tracker) notify() {
	if t.onChange == nil {
		return
	}
	t.mu.Lock()
	task, worked, total := t.task, t.worked, t.total
	t.mu.Unlock()
	t.onChange(task, worked, total)
}

func (t *tracker) currentTask() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task
}

// invoke runs op on its own goroutine so an interrupted caller returns
// without waiting for an operation that ignores its context.
func invoke(ctx context.Context, op Operation, t *tracker) error {
	if op == nil {
		return &InvocationError{Err: errors.New("no operation")}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Resolution", fmt.Errorf("panic: %v", r), "Operation panicked\n%s", debug.Stack())
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- op(ctx, t)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		default:
			return &InvocationError{Task: t.currentTask(), Err: err}
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
}

// SyncRunner runs operations without a display.
type SyncRunner struct{}

// Run implements Runner.
func (SyncRunner) Run(ctx context.Context, op Operation) error {
	return invoke(ctx, op, &tracker{})
}

// SpinnerRunner shows a spinner with the current task while an operation
// runs.
type SpinnerRunner struct {
	// Writer receives the spinner. Nil means standard error.
	Writer io.Writer
	// Quiet disables the spinner.
	Quiet bool
}

// Run implements Runner.
func (r SpinnerRunner) Run(ctx context.Context, op Operation) error {
	if r.Quiet {
		return invoke(ctx, op, &tracker{})
	}

	opts := []spinner.Option{}
	if r.Writer != nil {
		opts = append(opts, spinner.WithWriter(r.Writer))
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, opts...)
	s.Suffix = " Working..."

	t := &tracker{onChange: func(task string, worked, total int) {
		s.Lock()
		s.Suffix = " " + suffix(task, worked, total)
		s.Unlock()
	}}

	s.Start()
	err := invoke(ctx, op, t)
	switch {
	case err == nil:
		s.FinalMSG = text.FgGreen.Sprint("✓ "+t.currentTask()) + "\n"
	case errors.Is(err, ErrInterrupted):
		s.FinalMSG = text.FgYellow.Sprint("Interrupted") + "\n"
	default:
		s.FinalMSG = text.FgRed.Sprint("✗ "+errutil.Sanitize(err.Error())) + "\n"
	}
	s.Stop()
	return err
}

func suffix(task string, worked, total int) string {
	if task == "" {
		task = "Working"
	}
	if total <= 0 {
		return task + "..."
	}
	return fmt.Sprintf("%s (%d/%d)", task, worked, total)
}
