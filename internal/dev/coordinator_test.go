package dev

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute-dev/saferoute/internal/config"
	"github.com/saferoute-dev/saferoute/internal/pipeline"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

type chanSource struct {
	ch chan Change
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan Change, 16)}
}

func (s *chanSource) Events(context.Context) (<-chan Change, error) {
	return s.ch, nil
}

func (s *chanSource) touch(path string) {
	s.ch <- Change{Path: path, Op: OpModify}
}

type fakeRunner struct {
	mu      sync.Mutex
	passes  int
	ctxErrs []error
	started chan struct{}
	gate    chan struct{}
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, job pipeline.Job) pipeline.Outcome {
	f.mu.Lock()
	f.passes++
	n := f.passes
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	return pipeline.Outcome{Generation: uint64(n), Output: job.Output, Err: f.err}
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passes
}

func receive(t *testing.T, ch <-chan pipeline.Outcome) pipeline.Outcome {
	t.Helper()
	select {
	case o, ok := <-ch:
		require.True(t, ok, "outcome channel closed")
		return o
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for outcome")
	}
	return pipeline.Outcome{}
}

func assertQuiet(t *testing.T, ch <-chan pipeline.Outcome, d time.Duration) {
	t.Helper()
	select {
	case o, ok := <-ch:
		if ok {
			t.Fatalf("unexpected pass: generation %d", o.Generation)
		}
	case <-time.After(d):
	}
}

func assertClosed(t *testing.T, ch <-chan pipeline.Outcome) {
	t.Helper()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected channel to be closed")
	case <-time.After(3 * time.Second):
		t.Fatal("outcome channel not closed")
	}
}

func TestCoordinatorCoalescesBurst(t *testing.T) {
	src := newChanSource()
	runner := &fakeRunner{}
	c := NewCoordinator(CoordinatorOptions{Runner: runner, Source: src, Debounce: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	src.touch("app/a/page.tsx")
	src.touch("app/b/page.tsx")
	src.touch("app/c/page.tsx")

	o := receive(t, outcomes)
	assert.Equal(t, uint64(1), o.Generation)
	assertQuiet(t, outcomes, 200*time.Millisecond)
	assert.Equal(t, 1, runner.count())
	assert.Equal(t, StateIdle, c.State())
}

func TestCoordinatorDirtyDuringPass(t *testing.T) {
	src := newChanSource()
	runner := &fakeRunner{started: make(chan struct{}, 4), gate: make(chan struct{})}
	c := NewCoordinator(CoordinatorOptions{Runner: runner, Source: src, Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	src.touch("app/page.tsx")
	<-runner.started
	assert.Equal(t, StateRunning, c.State())

	// Two edits while the pass runs yield exactly one follow-up pass.
	src.touch("app/x/page.tsx")
	src.touch("app/y/page.tsx")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.count(), "passes must not overlap")

	runner.gate <- struct{}{}
	assert.Equal(t, uint64(1), receive(t, outcomes).Generation)

	<-runner.started
	runner.gate <- struct{}{}
	assert.Equal(t, uint64(2), receive(t, outcomes).Generation)

	assertQuiet(t, outcomes, 100*time.Millisecond)
	assert.Equal(t, 2, runner.count())
}

func TestCoordinatorCancelDuringDebounce(t *testing.T) {
	src := newChanSource()
	runner := &fakeRunner{}
	c := NewCoordinator(CoordinatorOptions{Runner: runner, Source: src, Debounce: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	src.touch("app/page.tsx")
	require.Eventually(t, func() bool { return c.State() == StateDebouncing }, time.Second, 5*time.Millisecond)

	cancel()
	assertClosed(t, outcomes)
	assert.Equal(t, 0, runner.count())
}

func TestCoordinatorCancelDuringPass(t *testing.T) {
	src := newChanSource()
	runner := &fakeRunner{started: make(chan struct{}, 1), gate: make(chan struct{})}
	c := NewCoordinator(CoordinatorOptions{Runner: runner, Source: src, InitialPass: true})

	ctx, cancel := context.WithCancel(context.Background())
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	<-runner.started
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(runner.gate)

	o := receive(t, outcomes)
	assert.Equal(t, uint64(1), o.Generation)
	assertClosed(t, outcomes)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.ctxErrs, 1)
	assert.NoError(t, runner.ctxErrs[0], "pass context must not be cancelled")
}

func TestCoordinatorIgnoresOwnOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "routes.d.ts")
	src := newChanSource()
	runner := &fakeRunner{}
	c := NewCoordinator(CoordinatorOptions{
		Job:      pipeline.Job{Output: out},
		Runner:   runner,
		Source:   src,
		Debounce: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	src.touch(out)
	src.touch(filepath.Join(filepath.Dir(out), ".routes.d.ts.tmp-4021"))
	assertQuiet(t, outcomes, 100*time.Millisecond)
	assert.Equal(t, 0, runner.count())
}

func TestCoordinatorWatchTwice(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{Runner: &fakeRunner{}, Source: newChanSource()})

	ctx, cancel := context.WithCancel(context.Background())
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	_, err = c.Watch(ctx)
	assert.ErrorIs(t, err, ErrAlreadyWatching)

	cancel()
	assertClosed(t, outcomes)
}

func TestCoordinatorStopsOnFatalPass(t *testing.T) {
	for _, sentinel := range []error{router.ErrNotFound, router.ErrUnsupportedConvention} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			src := newChanSource()
			runner := &fakeRunner{err: fmt.Errorf("%w: /missing", sentinel)}
			c := NewCoordinator(CoordinatorOptions{Runner: runner, Source: src, InitialPass: true})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			outcomes, err := c.Watch(ctx)
			require.NoError(t, err)

			failed := receive(t, outcomes)
			assert.ErrorIs(t, failed.Err, sentinel)
			assertClosed(t, outcomes)
			assert.ErrorIs(t, c.Err(), sentinel)
			assert.Equal(t, 1, runner.count())
		})
	}
}

func TestCoordinatorKeepsWatchingAfterValidationFailure(t *testing.T) {
	src := newChanSource()
	runner := &fakeRunner{err: fmt.Errorf("%w: /a", router.ErrConflictingRoute)}
	c := NewCoordinator(CoordinatorOptions{Runner: runner, Source: src, Debounce: 10 * time.Millisecond, InitialPass: true})

	ctx, cancel := context.WithCancel(context.Background())
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)

	require.Error(t, receive(t, outcomes).Err)
	src.touch("app/page.tsx")
	assert.Equal(t, uint64(2), receive(t, outcomes).Generation)

	cancel()
	assertClosed(t, outcomes)
	assert.NoError(t, c.Err())
}

type failingSource struct{}

func (failingSource) Events(context.Context) (<-chan Change, error) {
	return nil, errors.New("no inotify")
}

func TestCoordinatorSourceError(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{Runner: &fakeRunner{}, Source: failingSource{}})
	_, err := c.Watch(context.Background())
	assert.Error(t, err)
}

func writePage(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("export default function Page() {}\n"), 0o644))
}

func watchProject(t *testing.T, ctx context.Context, root string) (<-chan pipeline.Outcome, pipeline.Job) {
	t.Helper()
	return watchProjectWith(t, ctx, root, 10*time.Millisecond, 150*time.Millisecond)
}

func watchProjectWith(t *testing.T, ctx context.Context, root string, poll, debounce time.Duration) (<-chan pipeline.Outcome, pipeline.Job) {
	t.Helper()
	p, err := pipeline.New(pipeline.Options{Locks: &pipeline.PathLocks{}})
	require.NoError(t, err)

	job := pipeline.Job{
		Root:   root,
		Type:   router.ProjectNextApp,
		Output: filepath.Join(root, "generated", "routes.d.ts"),
		Mode:   router.ModeFlat,
	}
	w := NewWatcher(WatcherConfig{Paths: []string{filepath.Join(root, "app")}, Interval: poll})
	c := NewCoordinator(CoordinatorOptions{
		Job:         job,
		Runner:      p,
		Source:      w,
		Debounce:    debounce,
		InitialPass: true,
	})
	outcomes, err := c.Watch(ctx)
	require.NoError(t, err)
	return outcomes, job
}

func TestWatchRegeneratesOncePerBurst(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "app/page.tsx")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomes, job := watchProject(t, ctx, root)

	initial := receive(t, outcomes)
	require.NoError(t, initial.Err)
	assert.Equal(t, 1, initial.Routes)

	writePage(t, root, "app/a/page.tsx")
	writePage(t, root, "app/b/page.tsx")
	writePage(t, root, "app/c/page.tsx")

	next := receive(t, outcomes)
	require.NoError(t, next.Err)
	assert.Equal(t, 4, next.Routes, "one pass must reflect all three edits")
	assert.True(t, next.Changed)
	assertQuiet(t, outcomes, 400*time.Millisecond)

	data, err := os.ReadFile(job.Output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"/c"`)
}

// Edits spread across a poll tick still land in one pass with the
// default timings.
func TestWatchDefaultTimingsOnePassPerBurst(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "app/page.tsx")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcomes, _ := watchProjectWith(t, ctx, root, config.DefaultPollInterval, config.DefaultDebounce)
	require.NoError(t, receive(t, outcomes).Err)

	time.Sleep(config.DefaultPollInterval / 2)
	writePage(t, root, "app/a/page.tsx")
	time.Sleep(20 * time.Millisecond)
	writePage(t, root, "app/b/page.tsx")
	time.Sleep(20 * time.Millisecond)
	writePage(t, root, "app/c/page.tsx")

	next := receive(t, outcomes)
	require.NoError(t, next.Err)
	assert.Equal(t, 4, next.Routes)
	assertQuiet(t, outcomes, 3*config.DefaultDebounce)
}

func TestWatchConflictKeepsArtifact(t *testing.T) {
	root := t.TempDir()
	writePage(t, root, "app/user/[id]/page.tsx")

	ctx, cancel := context.WithCancel(context.Background())
	outcomes, job := watchProject(t, ctx, root)

	require.NoError(t, receive(t, outcomes).Err)
	good, err := os.ReadFile(job.Output)
	require.NoError(t, err)

	writePage(t, root, "app/(admin)/user/[userId]/page.tsx")
	failed := receive(t, outcomes)
	assert.True(t, errors.Is(failed.Err, router.ErrConflictingRoute), "error = %v", failed.Err)

	var multi *router.MultiValidationError
	require.True(t, errors.As(failed.Err, &multi), "error = %v", failed.Err)
	assert.ElementsMatch(t, []string{
		"app/(admin)/user/[userId]/page.tsx",
		"app/user/[id]/page.tsx",
	}, multi.Files())

	current, err := os.ReadFile(job.Output)
	require.NoError(t, err)
	assert.Equal(t, good, current)

	cancel()
	assertClosed(t, outcomes)
}
