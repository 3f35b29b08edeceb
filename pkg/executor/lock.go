//go:build darwin || linux

package executor

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Lock is an exclusive advisory lock on a file, held for one patch run.
type Lock struct {
	file *os.File
}

// AcquireLock takes the lock without waiting. A lock held by any other
// process, or by another open of the same file, fails with ErrLocked.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "opening lock file %s", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errors.Wrapf(ErrLocked, "%s", path)
		}
		return nil, errors.Wrapf(err, "locking %s", path)
	}

	// Owner pid, for operators inspecting a stuck lock
	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &Lock{file: f}, nil
}

func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
