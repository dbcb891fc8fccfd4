//go:build linux

// Package socketcan exchanges CAN bus frames with the kernel's SocketCAN
// stack through raw AF_CAN sockets. It provides a classic-frame Socket, an
// FD-capable FDSocket, and the kernel-side option surface (filters, error
// mask, loopback, timeouts) both are built on.
//
// All operations are synchronous kernel calls; the package spawns no
// goroutines and performs no logging. Each socket exclusively owns its file
// descriptor and assumes single-reader, single-writer discipline.
package socketcan

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Syscall seams, swapped out by unit tests that cannot touch a real CAN
// interface (same pattern as the device-open hooks in cmd).
var (
	sysSocket     = unix.Socket
	sysBind       = func(fd int, sa *unix.SockaddrCAN) error { return unix.Bind(fd, sa) }
	sysClose      = unix.Close
	sysRead       = unix.Read
	sysWrite      = unix.Write
	sysPoll       = unix.Poll
	sysSetsockopt = func(fd, level, name int, value []byte) error {
		// SetsockoptString passes a nil pointer with zero length for an
		// empty value, which the kernel takes as "clear the option".
		return unix.SetsockoptString(fd, level, name, string(value))
	}
	sysGetTimeval = unix.GetsockoptTimeval
)

// rawSocket is an exclusively-owned descriptor of a bound CAN_RAW socket.
// It is embedded by Socket and FDSocket and carries everything that does
// not depend on the frame size: lifetime, options and byte-level I/O.
type rawSocket struct {
	fd     int
	closed atomic.Bool
}

// openRaw creates a CAN_RAW socket and binds it to addr. CLOEXEC is always
// requested; NONBLOCK only when asked for. A bind failure closes the fresh
// descriptor before returning so no descriptor leaks.
func openRaw(addr Addr, nonblock bool) (int, error) {
	typ := unix.SOCK_RAW | unix.SOCK_CLOEXEC
	if nonblock {
		typ |= unix.SOCK_NONBLOCK
	}
	fd, err := sysSocket(unix.AF_CAN, typ, unix.CAN_RAW)
	if err != nil {
		return -1, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	sa := &unix.SockaddrCAN{Ifindex: addr.Ifindex}
	if err := sysBind(fd, sa); err != nil {
		_ = sysClose(fd)
		return -1, fmt.Errorf("bind(can#%d): %w", addr.Ifindex, err)
	}
	return fd, nil
}

// FD returns the underlying descriptor, e.g. for external readiness polling
// across several sockets. The value is no longer valid after Close.
func (s *rawSocket) FD() int { return s.fd }

// Close releases the descriptor. Only the first call has an effect.
func (s *rawSocket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return sysClose(s.fd)
}

// DetachFD transfers descriptor ownership to the caller. The socket is left
// in the closed state so a later Close does not touch the descriptor.
// Returns -1 if ownership was already given up.
func (s *rawSocket) DetachFD() int {
	if s.closed.Swap(true) {
		return -1
	}
	return s.fd
}

// setOpt writes one fixed-size value to the socket option table. Along with
// setOptMulti it is the only setsockopt call site in the package; every
// named option below goes through these two.
func (s *rawSocket) setOpt(level, name int, value []byte) error {
	return sysSetsockopt(s.fd, level, name, value)
}

// setOptMulti writes a contiguous sequence of fixed-size values. An empty
// sequence is handed to the kernel as a null pointer with zero length,
// which clears the option (the mechanism behind "reject every frame").
func (s *rawSocket) setOptMulti(level, name int, values []byte) error {
	return sysSetsockopt(s.fd, level, name, values)
}

// optBytes views a fixed-size kernel value as the byte span setsockopt
// wants. The kernel expects host byte order, which this preserves.
func optBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func (s *rawSocket) setOptInt(level, name int, v int32) error {
	return s.setOpt(level, name, optBytes(&v))
}

func (s *rawSocket) setOptBool(level, name int, enable bool) error {
	var v int32
	if enable {
		v = 1
	}
	return s.setOptInt(level, name, v)
}

func (s *rawSocket) setTimeout(name int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return s.setOpt(unix.SOL_SOCKET, name, optBytes(&tv))
}

func (s *rawSocket) timeout(name int) (time.Duration, error) {
	tv, err := sysGetTimeval(s.fd, unix.SOL_SOCKET, name)
	if err != nil {
		return 0, err
	}
	return time.Duration(tv.Nano()), nil
}
