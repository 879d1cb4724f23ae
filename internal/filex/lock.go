package filex

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dmitrijs2005/testtracker/internal/common"
)

// lockPollInterval is how often a contended lock is retried.
const lockPollInterval = 10 * time.Millisecond

// FileLock is an exclusive advisory lock (flock) on a lock file.
// Locks taken through separate FileLock values exclude each other even
// inside one process.
type FileLock struct {
	f *os.File
}

// Lock takes an exclusive lock on path, creating the file when needed.
// It retries until the lock is free, timeout elapses (common.ErrLockTimeout)
// or ctx is done. A zero timeout waits for ctx alone.
func Lock(ctx context.Context, path string, timeout time.Duration) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o660)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &FileLock{f: f}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			_ = f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-deadline:
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s", common.ErrLockTimeout, path)
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock and closes the lock file.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
