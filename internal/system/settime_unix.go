//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package system

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// setSystemClock uses settimeofday with microsecond precision.
func setSystemClock(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		code := -1
		var errno unix.Errno
		if errors.As(err, &errno) {
			code = int(errno)
		}
		return &ClockError{Code: code, Err: err}
	}
	return nil
}
