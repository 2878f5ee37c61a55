// Package lock provides the advisory per-destination lock taken by backup
// runs around the position record's read-modify-write. Without it, two
// concurrent runs against one destination would both read the same stored
// coordinate and the last save would silently win.
//
// The lock is a sibling file of the destination directory, created with
// O_EXCL, so a full backup's destination purge never removes a held lock.
package lock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Lock is a held destination lock. Release it with Release.
type Lock struct {
	path string
}

// Acquire takes the advisory lock for a destination directory. It fails
// immediately when another run holds it; there is no waiting, since backup
// runs are scheduled, not interactive.
func Acquire(dest string) (*Lock, error) {
	path := dest + ".lock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("destination is locked by another run (%s exists)", path)
		}
		return nil, fmt.Errorf("acquiring destination lock: %w", err)
	}
	// The pid is informational, for operators cleaning up after a crash.
	fmt.Fprintln(f, strconv.Itoa(os.Getpid()))
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("acquiring destination lock: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
