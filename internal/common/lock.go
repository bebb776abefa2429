package common

import (
	"fmt"
	"path/filepath"

	"jobpilot/internal/errors"

	"github.com/gofrs/flock"
)

// ApplyLock guards against two generation sessions running from the same
// data directory.
type ApplyLock struct {
	fl *flock.Flock
}

// AcquireApplyLock takes the lock at path without waiting
func AcquireApplyLock(path string) (*ApplyLock, error) {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("cannot lock %s", path), err)
	}
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeApplyInProgress,
			"another application is already being generated; wait for it or cancel it first", nil).
			WithContext("lock", path)
	}
	return &ApplyLock{fl: fl}, nil
}

// Release unlocks; it is safe to call more than once
func (l *ApplyLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
