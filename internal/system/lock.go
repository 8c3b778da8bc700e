package system

import "errors"

// ErrAlreadyRunning means another instance holds the process lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// MutexName is the cross-session named mutex used on Windows.
const MutexName = `Global\httptimesync`

// Lock is an acquired single-instance lock. Release is safe to call more
// than once.
type Lock struct {
	release func() error
}

func (l *Lock) Release() error {
	if l == nil || l.release == nil {
		return nil
	}
	fn := l.release
	l.release = nil
	return fn()
}

// AcquireLock takes the host-wide single-instance lock without blocking.
// path names the lock file on Unix and is ignored on Windows.
func AcquireLock(path string) (*Lock, error) {
	return acquireLock(path)
}
