//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package system

import "time"

func setSystemClock(time.Time) error {
	return &ClockError{Code: -1, Err: ErrUnsupported}
}
