//go:build windows

package system

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

func acquireLock(string) (*Lock, error) {
	name, err := windows.UTF16PtrFromString(MutexName)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateMutex(nil, true, name)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("create mutex %s: %w", MutexName, err)
	}
	return &Lock{release: func() error {
		windows.ReleaseMutex(h)
		return windows.CloseHandle(h)
	}}, nil
}
