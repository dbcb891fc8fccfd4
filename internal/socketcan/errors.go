//go:build linux

package socketcan

import "errors"

var (
	// ErrTimeout is returned by the timed read calls when no frame became
	// readable within the given duration. It is distinct from any kernel
	// error so callers can tell "no data yet" from a broken socket.
	ErrTimeout = errors.New("socketcan: read timed out")

	// ErrFrameSize is wrapped by FD-capable reads when the kernel returns a
	// byte count that is neither a classic nor an FD frame. That never
	// happens on a healthy CAN_RAW socket; it signals an ABI mismatch and
	// is not retried.
	ErrFrameSize = errors.New("socketcan: unexpected frame size")
)
