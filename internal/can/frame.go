package can

import (
	"encoding/binary"
	"fmt"
)

// Frame is a classic CAN 2.0 frame. ID contains the EFF/RTR/ERR flags in its
// upper bits like SocketCAN; Len is the payload length (0..8) and only the
// first Len bytes of Data are valid.
//
// The wire form is struct can_frame (linux/can.h):
//
//	can_id  u32   [0:4]  (includes EFF/RTR/ERR flags)
//	can_dlc u8    [4]
//	pad     3B    [5:8]
//	data    [8]   [8:16]
//
// NOTE: The kernel provides fields in host byte order. On common Linux archs
// (little-endian) this matches binary.LittleEndian. If you ever target
// big-endian, switch to BigEndian here.
type Frame struct {
	ID   uint32
	Len  uint8
	Data [MaxDataLen]byte
}

// Extended reports whether the frame carries a 29-bit identifier.
func (f Frame) Extended() bool { return f.ID&CAN_EFF_FLAG != 0 }

// RTR reports whether the frame is a remote transmission request.
func (f Frame) RTR() bool { return f.ID&CAN_RTR_FLAG != 0 }

// Err reports whether the frame is a kernel error frame.
func (f Frame) Err() bool { return f.ID&CAN_ERR_FLAG != 0 }

// RawID returns the identifier with the flag bits stripped.
func (f Frame) RawID() uint32 {
	if f.Extended() {
		return f.ID & CAN_EFF_MASK
	}
	return f.ID & CAN_SFF_MASK
}

// WireLen implements AnyFrame.
func (f Frame) WireLen() int { return FrameLen }

// AppendWire implements AnyFrame.
func (f Frame) AppendWire(dst []byte) []byte {
	var b [FrameLen]byte
	binary.LittleEndian.PutUint32(b[0:4], f.ID)
	b[4] = f.Len
	copy(b[8:], f.Data[:])
	return append(dst, b[:]...)
}

// UnmarshalWire fills f from exactly one raw can_frame. The DLC is clamped
// to MaxDataLen; the kernel should never exceed it but a rogue value must
// not index out of the payload.
func (f *Frame) UnmarshalWire(b []byte) error {
	if len(b) != FrameLen {
		return fmt.Errorf("can: frame wire length %d, want %d", len(b), FrameLen)
	}
	f.ID = binary.LittleEndian.Uint32(b[0:4])
	f.Len = b[4]
	if f.Len > MaxDataLen {
		f.Len = MaxDataLen
	}
	copy(f.Data[:], b[8:FrameLen])
	return nil
}

// FDFrame is a CAN FD frame with up to 64 bytes of payload. Flags carries
// the CANFD_BRS/CANFD_ESI bits.
//
// The wire form is struct canfd_frame (linux/can.h):
//
//	can_id  u32   [0:4]
//	len     u8    [4]
//	flags   u8    [5]
//	res     2B    [6:8]
//	data    [64]  [8:72]
type FDFrame struct {
	ID    uint32
	Len   uint8
	Flags uint8
	Data  [MaxFDDataLen]byte
}

// Extended reports whether the frame carries a 29-bit identifier.
func (f FDFrame) Extended() bool { return f.ID&CAN_EFF_FLAG != 0 }

// RawID returns the identifier with the flag bits stripped.
func (f FDFrame) RawID() uint32 {
	if f.Extended() {
		return f.ID & CAN_EFF_MASK
	}
	return f.ID & CAN_SFF_MASK
}

// WireLen implements AnyFrame.
func (f FDFrame) WireLen() int { return FDFrameLen }

// AppendWire implements AnyFrame.
func (f FDFrame) AppendWire(dst []byte) []byte {
	var b [FDFrameLen]byte
	binary.LittleEndian.PutUint32(b[0:4], f.ID)
	b[4] = f.Len
	b[5] = f.Flags
	copy(b[8:], f.Data[:])
	return append(dst, b[:]...)
}

// UnmarshalWire fills f from exactly one raw canfd_frame.
func (f *FDFrame) UnmarshalWire(b []byte) error {
	if len(b) != FDFrameLen {
		return fmt.Errorf("can: FD frame wire length %d, want %d", len(b), FDFrameLen)
	}
	f.ID = binary.LittleEndian.Uint32(b[0:4])
	f.Len = b[4]
	if f.Len > MaxFDDataLen {
		f.Len = MaxFDDataLen
	}
	f.Flags = b[5]
	copy(f.Data[:], b[8:FDFrameLen])
	return nil
}
