//go:build linux

package socketcan

import (
	"testing"

	"golang.org/x/sys/unix"
)

// setsockoptCall records one trip through the option encoder.
type setsockoptCall struct {
	fd, level, name int
	value           []byte
}

// captureSetsockopt replaces the setsockopt seam with a recorder for the
// duration of the test.
func captureSetsockopt(t *testing.T) *[]setsockoptCall {
	t.Helper()
	old := sysSetsockopt
	calls := &[]setsockoptCall{}
	sysSetsockopt = func(fd, level, name int, value []byte) error {
		*calls = append(*calls, setsockoptCall{fd, level, name, append([]byte(nil), value...)})
		return nil
	}
	t.Cleanup(func() { sysSetsockopt = old })
	return calls
}

// stubOpen fakes socket creation and bind so open paths run without a CAN
// interface. Returns a pointer to the list of descriptors closed so far.
func stubOpen(t *testing.T, fd int, bindErr error) *[]int {
	t.Helper()
	oldSocket, oldBind, oldClose := sysSocket, sysBind, sysClose
	closed := &[]int{}
	sysSocket = func(domain, typ, proto int) (int, error) { return fd, nil }
	sysBind = func(fd int, sa *unix.SockaddrCAN) error { return bindErr }
	sysClose = func(fd int) error { *closed = append(*closed, fd); return nil }
	t.Cleanup(func() { sysSocket, sysBind, sysClose = oldSocket, oldBind, oldClose })
	return closed
}
