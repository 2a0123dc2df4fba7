package dev

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// ChangeOp represents the kind of file change.
type ChangeOp int

const (
	OpCreate ChangeOp = iota
	OpModify
	OpRemove
)

func (op ChangeOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Change represents a detected file change.
type Change struct {
	Path string
	Op   ChangeOp
}

// EventSource delivers filesystem change events until ctx is done, then
// closes the channel.
type EventSource interface {
	Events(ctx context.Context) (<-chan Change, error)
}

// WatcherConfig configures the polling file watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch.
	Paths []string

	// Ignore patterns to skip (globs).
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"build",
	".next",
	"*.tmp",
	".*.tmp-*",
	"*.swp",
	"*~",
	".#*",
}

// Watcher polls files for changes. It implements EventSource.
type Watcher struct {
	config  WatcherConfig
	ignore  []ignoreRule
	mu      sync.Mutex
	running bool
	seen    map[string]fileStamp
}

// fileStamp is what a poll compares. Size catches rewrites that land
// within the filesystem's mtime granularity.
type fileStamp struct {
	mod  time.Time
	size int64
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 50 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}

	return &Watcher{
		config: config,
		ignore: compileIgnore(config.Ignore),
		seen:   make(map[string]fileStamp),
	}
}

// Events takes a snapshot of the watched paths and starts polling. Every
// change after the snapshot is delivered on the returned channel.
func (w *Watcher) Events(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, errWatcherRunning
	}
	w.running = true
	w.seen = w.snapshot()
	w.mu.Unlock()

	ch := make(chan Change, 64)
	go func() {
		defer func() {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			close(ch)
		}()

		ticker := time.NewTicker(w.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for _, change := range w.poll() {
				select {
				case ch <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// poll diffs the current tree against the previous snapshot. Changes are
// sorted by path so a burst is reported in a stable order.
func (w *Watcher) poll() []Change {
	current := w.snapshot()

	w.mu.Lock()
	previous := w.seen
	w.seen = current
	w.mu.Unlock()

	var changes []Change
	for file, stamp := range current {
		old, ok := previous[file]
		switch {
		case !ok:
			changes = append(changes, Change{Path: file, Op: OpCreate})
		case old != stamp:
			changes = append(changes, Change{Path: file, Op: OpModify})
		}
	}
	for file := range previous {
		if _, ok := current[file]; !ok {
			changes = append(changes, Change{Path: file, Op: OpRemove})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return strings.Compare(a.Path, b.Path)
	})
	return changes
}

// snapshot stats every non-ignored file under the watched paths.
// Unreadable entries are skipped; a path that disappears shows up as
// removals on the next poll.
func (w *Watcher) snapshot() map[string]fileStamp {
	files := make(map[string]fileStamp)
	for _, root := range w.config.Paths {
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			if p != root && w.shouldIgnore(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files[p] = fileStamp{mod: info.ModTime(), size: info.Size()}
			return nil
		})
	}
	return files
}

// ignoreRule is one compiled ignore pattern. Patterns without a slash are
// tested against every path segment; patterns with a slash must match a
// run of consecutive segments.
type ignoreRule struct {
	parts []string
	glob  bool
}

func compileIgnore(patterns []string) []ignoreRule {
	rules := make([]ignoreRule, 0, len(patterns))
	for _, p := range patterns {
		p = strings.Trim(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if p == "" {
			continue
		}
		rules = append(rules, ignoreRule{
			parts: strings.Split(p, "/"),
			glob:  strings.ContainsAny(p, "*?["),
		})
	}
	return rules
}

func (r ignoreRule) matches(segments []string) bool {
	for i := 0; i+len(r.parts) <= len(segments); i++ {
		if r.matchAt(segments[i:]) {
			return true
		}
	}
	return false
}

func (r ignoreRule) matchAt(segments []string) bool {
	for j, part := range r.parts {
		if !r.glob {
			if segments[j] != part {
				return false
			}
			continue
		}
		if ok, _ := path.Match(part, segments[j]); !ok {
			return false
		}
	}
	return true
}

// shouldIgnore reports whether any ignore rule matches p. The watcher
// passes paths relative to the watched root.
func (w *Watcher) shouldIgnore(p string) bool {
	var segments []string
	for _, s := range strings.Split(filepath.ToSlash(p), "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	for _, r := range w.ignore {
		if r.matches(segments) {
			return true
		}
	}
	return false
}

// IsRunning returns whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
