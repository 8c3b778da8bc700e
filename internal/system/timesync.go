package system

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupported is returned on platforms without a clock-set adapter.
var ErrUnsupported = errors.New("setting the system clock is not supported on this platform")

// ClockSetter overwrites the OS wall clock.
type ClockSetter interface {
	SetSystemClock(t time.Time) error
}

// ClockError carries the platform error code (errno or Win32 error) of a
// failed clock write.
type ClockError struct {
	Code int
	Err  error
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("set system clock failed (code %d): %v", e.Code, e.Err)
}

func (e *ClockError) Unwrap() error { return e.Err }

// OSClock writes the real system clock. It needs root, CAP_SYS_TIME or
// SeSystemtimePrivilege.
type OSClock struct{}

func (OSClock) SetSystemClock(t time.Time) error {
	return setSystemClock(t.UTC())
}

// DryRunClock accepts every instant and records the last one.
type DryRunClock struct {
	Last time.Time
}

func (c *DryRunClock) SetSystemClock(t time.Time) error {
	c.Last = t.UTC()
	return nil
}
