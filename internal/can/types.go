package can

// SocketCAN flag bits for can_id (same values as <linux/can.h>)
const (
	CAN_EFF_FLAG = 0x80000000
	CAN_RTR_FLAG = 0x40000000
	CAN_ERR_FLAG = 0x20000000
	CAN_SFF_MASK = 0x7FF
	CAN_EFF_MASK = 0x1FFFFFFF
)

// CAN FD flag bits carried in the canfd_frame flags byte.
const (
	CANFD_BRS = 0x01 // bit rate switch (second bitrate for payload)
	CANFD_ESI = 0x02 // error state indicator of the transmitting node
)

// Kernel wire sizes of the two raw frame structures. A read from a CAN_RAW
// socket yields exactly one of these byte counts, never anything in between.
const (
	FrameLen   = 16 // sizeof(struct can_frame),   CAN_MTU
	FDFrameLen = 72 // sizeof(struct canfd_frame), CANFD_MTU
)

// Payload capacities.
const (
	MaxDataLen   = 8
	MaxFDDataLen = 64
)

// AnyFrame is either a classic Frame or an FDFrame. The concrete kind is
// recovered with a type switch; it is decided by the wire size the kernel
// reported, never by payload content.
type AnyFrame interface {
	// WireLen reports the raw frame size on the socket: FrameLen or
	// FDFrameLen.
	WireLen() int
	// AppendWire appends the kernel raw representation to dst and returns
	// the extended slice.
	AppendWire(dst []byte) []byte
}
