//go:build linux

package socketcan

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// ShouldRetry reports whether err is one of the transient "would block /
// timed out" conditions rather than a hard I/O failure. The kernel surfaces
// a blocking timeout as EAGAIN, EWOULDBLOCK or EINPROGRESS depending on
// call path; all three are equivalent here. Every other error, including a
// nil one, is not retry-worthy.
//
// ErrTimeout from a timed read also classifies as retryable so callers can
// treat "no data yet" uniformly.
func ShouldRetry(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	// EWOULDBLOCK aliases EAGAIN on Linux.
	case unix.EAGAIN, unix.EINPROGRESS:
		return true
	}
	return false
}
