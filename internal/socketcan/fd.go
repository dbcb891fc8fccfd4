//go:build linux

package socketcan

import (
	"fmt"
	"time"

	"github.com/canlink/go-can-gateway/internal/can"
)

// FDSocket is a raw CAN socket with CAN FD frames enabled. It reads and
// writes both classic and FD frames on the same descriptor; the kind of a
// received frame is decided solely by the byte count the kernel returned.
type FDSocket struct {
	rawSocket
}

// OpenFD opens a blocking FD-capable socket bound to the named interface.
func OpenFD(ifname string) (*FDSocket, error) {
	addr, err := ResolveInterface(ifname)
	if err != nil {
		return nil, err
	}
	return OpenFDAddr(addr, false)
}

// OpenFDIndex opens an FD-capable socket bound to the interface with the
// given kernel index.
func OpenFDIndex(ifindex int, nonblock bool) (*FDSocket, error) {
	return OpenFDAddr(AddrFromIndex(ifindex), nonblock)
}

// OpenFDAddr opens an FD-capable socket bound to addr. If the interface or
// kernel refuses CAN_RAW_FD_FRAMES the descriptor is closed and the open
// fails as a whole; there is no partially-configured socket state.
func OpenFDAddr(addr Addr, nonblock bool) (*FDSocket, error) {
	fd, err := openRaw(addr, nonblock)
	if err != nil {
		return nil, err
	}
	s := &FDSocket{rawSocket{fd: fd}}
	if err := s.setFDFrames(true); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("enable CAN FD frames: %w", err)
	}
	return s, nil
}

// FDFromFD takes ownership of an existing descriptor that already has FD
// frames enabled. The caller must not close or reuse fd afterwards.
func FDFromFD(fd int) *FDSocket {
	return &FDSocket{rawSocket{fd: fd}}
}

// ReadFrame blocks until one frame of either kind is read.
func (s *FDSocket) ReadFrame() (can.AnyFrame, error) {
	var buf [can.FDFrameLen]byte
	n, err := s.readOnce(buf[:])
	if err != nil {
		return nil, err
	}
	return decodeAny(buf[:], n)
}

// ReadFrameTimeout waits up to d for readability, then reads one frame of
// either kind. Returns ErrTimeout when nothing became readable in time.
func (s *FDSocket) ReadFrameTimeout(d time.Duration) (can.AnyFrame, error) {
	if err := s.waitReadable(d); err != nil {
		return nil, err
	}
	return s.ReadFrame()
}

// WriteFrame performs a single write attempt of a frame of either kind,
// writing exactly that frame's wire length.
func (s *FDSocket) WriteFrame(f can.AnyFrame) error {
	var buf [can.FDFrameLen]byte
	return s.write(f.AppendWire(buf[:0]))
}

// WriteFrameInsist writes a frame of either kind, busy-retrying across
// transient would-block failures.
func (s *FDSocket) WriteFrameInsist(f can.AnyFrame) error {
	var buf [can.FDFrameLen]byte
	return s.writeInsist(f.AppendWire(buf[:0]))
}

// decodeAny maps a raw read result to a typed frame purely by byte count:
// a classic can_frame, a canfd_frame, or a protocol violation. The kernel
// never returns partial frames on a CAN_RAW socket, so any other count is
// an unrecoverable inconsistency and is never coerced into a frame.
func decodeAny(buf []byte, n int) (can.AnyFrame, error) {
	switch n {
	case can.FrameLen:
		var f can.Frame
		if err := f.UnmarshalWire(buf[:can.FrameLen]); err != nil {
			return nil, err
		}
		return f, nil
	case can.FDFrameLen:
		var f can.FDFrame
		if err := f.UnmarshalWire(buf[:can.FDFrameLen]); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: read %d bytes, want %d or %d",
			ErrFrameSize, n, can.FrameLen, can.FDFrameLen)
	}
}
