//go:build linux

package socketcan

import (
	"time"

	"github.com/canlink/go-can-gateway/internal/can"
)

// Socket is a raw CAN socket restricted to classic 16-byte frames. The
// zero value is not usable; open with Open, OpenIndex or OpenAddr.
type Socket struct {
	rawSocket
}

// Open opens a blocking classic socket bound to the named interface.
func Open(ifname string) (*Socket, error) {
	addr, err := ResolveInterface(ifname)
	if err != nil {
		return nil, err
	}
	return OpenAddr(addr, false)
}

// OpenIndex opens a classic socket bound to the interface with the given
// kernel index.
func OpenIndex(ifindex int, nonblock bool) (*Socket, error) {
	return OpenAddr(AddrFromIndex(ifindex), nonblock)
}

// OpenAddr opens a classic socket bound to addr.
func OpenAddr(addr Addr, nonblock bool) (*Socket, error) {
	fd, err := openRaw(addr, nonblock)
	if err != nil {
		return nil, err
	}
	return &Socket{rawSocket{fd: fd}}, nil
}

// FromFD takes ownership of an existing raw CAN descriptor. The caller
// must not close or reuse fd afterwards; the socket is now its only owner.
func FromFD(fd int) *Socket {
	return &Socket{rawSocket{fd: fd}}
}

// ReadFrame blocks until one classic frame is read. A short read never
// yields a partial frame: interruption retries, exhaustion reports
// io.ErrUnexpectedEOF.
func (s *Socket) ReadFrame() (can.Frame, error) {
	var buf [can.FrameLen]byte
	if err := s.readFull(buf[:]); err != nil {
		return can.Frame{}, err
	}
	var f can.Frame
	_ = f.UnmarshalWire(buf[:]) // length is exact by construction
	return f, nil
}

// ReadFrameTimeout waits up to d for readability, then reads one frame.
// Returns ErrTimeout when nothing became readable in time.
func (s *Socket) ReadFrameTimeout(d time.Duration) (can.Frame, error) {
	if err := s.waitReadable(d); err != nil {
		return can.Frame{}, err
	}
	return s.ReadFrame()
}

// WriteFrame performs a single write attempt of the frame. It can fail
// with a transient would-block error under back-pressure; use
// WriteFrameInsist to ride those out.
func (s *Socket) WriteFrame(f can.Frame) error {
	var buf [can.FrameLen]byte
	return s.write(f.AppendWire(buf[:0]))
}

// WriteFrameInsist writes the frame, busy-retrying across transient
// would-block failures until it is sent or a terminal error occurs.
func (s *Socket) WriteFrameInsist(f can.Frame) error {
	var buf [can.FrameLen]byte
	return s.writeInsist(f.AppendWire(buf[:0]))
}
