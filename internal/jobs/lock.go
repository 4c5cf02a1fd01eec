package jobs

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// ErrInputLocked is returned when another process is running the same input.
var ErrInputLocked = errors.New("input is being processed by another mediabatch process")

// InputLock is an exclusive advisory lock on a sidecar file next to the input.
type InputLock struct {
	fl *flock.Flock
}

// LockInput takes the lock for path without waiting. Standard input is never
// locked and yields a nil lock, which is safe to release. A missing input fails
// before any sidecar is created.
func LockInput(path string) (*InputLock, error) {
	if path == "" || path == StdinPath {
		return nil, nil //nolint:nilnil // nothing to lock.
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking input: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrInputLocked, path)
	}
	return &InputLock{fl: fl}, nil
}

// Release unlocks the sidecar file. The file stays on disk: removing it would let
// a waiting process lock the unlinked inode while another locks a fresh file.
func (l *InputLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking input: %w", err)
	}
	l.fl = nil
	return nil
}
