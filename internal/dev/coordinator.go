package dev

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

var (
	// ErrAlreadyWatching is returned by Watch when the coordinator is
	// already running.
	ErrAlreadyWatching = errors.New("coordinator is already watching")

	errWatcherRunning = errors.New("watcher is already running")
)

// State is the coordinator state.
type State int32

const (
	StateIdle State = iota
	StateDebouncing
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateRunning:
		return "running"
	}
	return "unknown"
}

// Runner runs one generation pass. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) pipeline.Outcome
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Job is regenerated on every pass.
	Job pipeline.Job

	// Runner executes passes.
	Runner Runner

	// Source delivers change events.
	Source EventSource

	// Debounce is the quiet interval. Default: 150ms.
	Debounce time.Duration

	// Fatal reports whether a failed pass ends the watch. Defaults to
	// IsFatal.
	Fatal func(error) bool

	// InitialPass runs a pass as soon as watching starts.
	InitialPass bool

	// Logger defaults to slog.Default().With("component", "watch").
	Logger *slog.Logger
}

// Coordinator turns change events into debounced, single-flight
// regeneration passes.
//
//	Idle --change--> Debouncing --quiet--> Running --done--> Idle
//	                     ^   |change                |dirty
//	                     |   +--restart timer       |
//	                     +--------------------------+
//
// One goroutine owns the state; the event source only signals.
type Coordinator struct {
	opts     CoordinatorOptions
	logger   *slog.Logger
	state    atomic.Int32
	mu       sync.Mutex
	watching bool
	err      error
}

// IsFatal reports whether err means no later pass can succeed without
// restarting: the project root or routes root is missing, or the project
// type is unsupported.
func IsFatal(err error) bool {
	return errors.Is(err, router.ErrNotFound) || errors.Is(err, router.ErrUnsupportedConvention)
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = 150 * time.Millisecond
	}
	if opts.Fatal == nil {
		opts.Fatal = IsFatal
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "watch")
	}
	return &Coordinator{opts: opts, logger: opts.Logger}
}

// Err returns the error that ended the last watch, or nil when it was
// stopped by its context. Valid once the outcome channel is closed.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Watch starts the event loop and returns the outcome of every pass.
// Cancelling ctx stops the debounce timer at once; a running pass
// finishes and its outcome is delivered before the channel is closed.
// A fatal pass is delivered, then the channel is closed and Err returns
// its error.
func (c *Coordinator) Watch(ctx context.Context) (<-chan pipeline.Outcome, error) {
	c.mu.Lock()
	if c.watching {
		c.mu.Unlock()
		return nil, ErrAlreadyWatching
	}
	c.watching = true
	c.err = nil
	c.mu.Unlock()

	events, err := c.opts.Source.Events(ctx)
	if err != nil {
		c.mu.Lock()
		c.watching = false
		c.mu.Unlock()
		return nil, err
	}

	out := make(chan pipeline.Outcome, 1)
	go func() {
		defer func() {
			c.mu.Lock()
			c.watching = false
			c.mu.Unlock()
			close(out)
		}()
		c.loop(ctx, events, out)
	}()
	return out, nil
}

func (c *Coordinator) loop(ctx context.Context, events <-chan Change, out chan<- pipeline.Outcome) {
	timer := time.NewTimer(c.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	done := make(chan pipeline.Outcome, 1)
	dirty := false

	start := func() {
		c.setState(StateRunning)
		// Passes run to completion even after ctx is cancelled.
		passCtx := context.WithoutCancel(ctx)
		go func() {
			done <- c.opts.Runner.Run(passCtx, c.opts.Job)
		}()
	}

	c.setState(StateIdle)
	if c.opts.InitialPass {
		start()
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			if c.State() == StateRunning {
				c.deliver(ctx, out, <-done)
			}
			c.setState(StateIdle)
			return

		case change, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if isSamePath(change.Path, c.opts.Job.Output) || isWriteTemp(change.Path, c.opts.Job.Output) {
				continue
			}
			c.logger.Debug("change detected", "path", change.Path, "op", change.Op.String())

			switch c.State() {
			case StateIdle, StateDebouncing:
				timer.Reset(c.opts.Debounce)
				c.setState(StateDebouncing)
			case StateRunning:
				dirty = true
			}

		case <-timer.C:
			start()

		case outcome := <-done:
			if !outcome.OK() && c.opts.Fatal(outcome.Err) {
				c.logger.Error("watch stopped", "generation", outcome.Generation, "error", outcome.Err)
				c.mu.Lock()
				c.err = outcome.Err
				c.mu.Unlock()
				c.deliver(ctx, out, outcome)
				c.setState(StateIdle)
				return
			}
			if !outcome.OK() {
				c.logger.Warn("pass failed, previous artifact kept",
					"generation", outcome.Generation,
					"error", outcome.Err,
				)
			}
			c.deliver(ctx, out, outcome)
			if dirty {
				dirty = false
				timer.Reset(c.opts.Debounce)
				c.setState(StateDebouncing)
			} else {
				c.setState(StateIdle)
			}
		}
	}
}

// deliver sends outcome to the consumer. After cancellation it no longer
// waits for a slow consumer.
func (c *Coordinator) deliver(ctx context.Context, out chan<- pipeline.Outcome, outcome pipeline.Outcome) {
	select {
	case out <- outcome:
		return
	case <-ctx.Done():
	}
	select {
	case out <- outcome:
	default:
		c.logger.Debug("outcome dropped during shutdown", "generation", outcome.Generation)
	}
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}
