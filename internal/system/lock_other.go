//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package system

// No named-lock primitive here; running two instances is not prevented.
func acquireLock(string) (*Lock, error) {
	return &Lock{}, nil
}
