package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrWriteFailure is returned when the artifact cannot be written.
var ErrWriteFailure = errors.New("artifact write failed")

// WriteAtomic replaces path with data. The data is written to a temporary
// file in the same directory, synced and renamed over path, so readers see
// either the old or the new content. It reports false without touching the
// file when the content is already identical.
func WriteAtomic(path string, data []byte, perm os.FileMode) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	if err = tmp.Close(); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	return true, nil
}

// PathLocks serializes writers per output path.
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the lock for path and returns its release function.
func (l *PathLocks) Lock(path string) func() {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// processLocks is shared by every Pipeline that is not given its own.
var processLocks = &PathLocks{}
