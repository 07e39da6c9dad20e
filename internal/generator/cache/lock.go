package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	generrors "github.com/protoverge/protoverge/internal/generator/errors"
)

const (
	lockFile = ".lock"
	// lockRetryInterval is the poll interval while waiting for the lock
	lockRetryInterval = 100 * time.Millisecond
	// DefaultLockTimeout bounds how long an invocation waits for another
	// process to finish with the cache directory.
	DefaultLockTimeout = 30 * time.Second
)

// Lock is an exclusive advisory lock on a cache directory. Parallel build
// invocations share the directory; whoever holds the lock may read and
// rewrite the state file. The lock is advisory: it serializes cooperating
// invocations, it does not protect against outside writers.
type Lock struct {
	path     string
	file     *os.File
	released bool
}

// Acquire takes the exclusive lock, polling until it succeeds, the timeout
// elapses, or ctx is cancelled. Timeout means another process is mid-write
// and is reported as fatal rather than silently proceeding past it.
func Acquire(ctx context.Context, dir string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	file, err := openLockFile(dir)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{path: file.Name(), file: file}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			file.Close()
			return nil, fmt.Errorf("locking %s: %w", file.Name(), err)
		}

		if time.Now().After(deadline) {
			file.Close()
			return nil, generrors.LockTimeout(dir, timeout.Milliseconds())
		}
		select {
		case <-ctx.Done():
			file.Close()
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// TryAcquire attempts the lock once without waiting. It returns a nil lock
// and no error when another process holds it.
func TryAcquire(dir string) (*Lock, error) {
	file, err := openLockFile(dir)
	if err != nil {
		return nil, err
	}
	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
		file.Close()
		return nil, nil
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("locking %s: %w", file.Name(), err)
	}
	return &Lock{path: file.Name(), file: file}, nil
}

// IsLocked probes whether another process currently holds the directory
// lock, without disturbing it.
func IsLocked(dir string) bool {
	l, err := TryAcquire(dir)
	if err != nil {
		return false
	}
	if l == nil {
		return true
	}
	l.Release()
	return false
}

// Release drops the lock. It is safe to call more than once and must run
// on every exit path; defer it right after Acquire.
func (l *Lock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return l.file.Close()
}

// Path returns the lock file location, for diagnostics
func (l *Lock) Path() string {
	return l.path
}

// openLockFile ensures the cache directory and its lock file exist
func openLockFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	return file, nil
}
