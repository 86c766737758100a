// pattern: Imperative Shell

// Package instance owns the process-lifetime resources of a running gasview:
// the single-instance lock and the scratch directory.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = "gasview.lock"
	scratchDirName = "scratch"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another gasview instance is already running")

// Instance holds the lock and scratch directory for one process.
// Acquire it once in main and defer Close.
type Instance struct {
	dataDir string
	lock    *flock.Flock
}

// Acquire takes the exclusive lock under dataDir and creates a fresh
// scratch directory.
func Acquire(dataDir string) (*Instance, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	inst := &Instance{dataDir: dataDir, lock: fl}
	scratch := inst.ScratchDir()
	// A crashed run can leave a stale scratch directory behind.
	_ = os.RemoveAll(scratch)
	if err := os.MkdirAll(scratch, 0700); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return inst, nil
}

// DataDir returns the directory holding the lock.
func (i *Instance) DataDir() string {
	return i.dataDir
}

// ScratchDir returns the per-run scratch directory.
func (i *Instance) ScratchDir() string {
	return filepath.Join(i.dataDir, scratchDirName)
}

// Close removes the scratch directory and releases the lock.
// Safe to call more than once.
func (i *Instance) Close() error {
	if i == nil || i.lock == nil {
		return nil
	}
	rmErr := os.RemoveAll(i.ScratchDir())
	unlockErr := i.lock.Unlock()
	i.lock = nil
	return errors.Join(rmErr, unlockErr)
}

// Running reports whether another process currently holds the lock.
func Running(dataDir string) (bool, error) {
	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	if locked {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}

// Cleanup removes the lock file and scratch directory left by a crashed
// instance. It refuses while an instance is still running.
func Cleanup(dataDir string) ([]string, error) {
	// Probing the lock creates the lock file, so look first.
	var stale []string
	for _, name := range []string{scratchDirName, lockFileName} {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			stale = append(stale, path)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	running, err := Running(dataDir)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, ErrAlreadyRunning
	}

	var removed []string
	for _, path := range stale {
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
