//go:build linux

package socketcan

import (
	"fmt"
	"net"
)

// Addr identifies the CAN interface a socket binds to. Ifindex is the
// kernel interface index; Name is informational and may be empty when the
// address was built from an index directly.
type Addr struct {
	Ifindex int
	Name    string
}

// ResolveInterface looks up a CAN interface by name ("can0", "vcan0", ...)
// and returns its bind address.
func ResolveInterface(name string) (Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return Addr{}, fmt.Errorf("interface %q: %w", name, err)
	}
	return Addr{Ifindex: ifi.Index, Name: name}, nil
}

// AddrFromIndex builds a bind address from a known interface index without
// a name lookup.
func AddrFromIndex(ifindex int) Addr { return Addr{Ifindex: ifindex} }

func (a Addr) String() string {
	if a.Name != "" {
		return a.Name
	}
	return fmt.Sprintf("can#%d", a.Ifindex)
}
