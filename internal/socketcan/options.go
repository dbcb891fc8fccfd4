//go:build linux

package socketcan

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrMaskAll enables reporting of every error condition the kernel defines
// when passed to SetErrorMask.
const ErrMaskAll = unix.CAN_ERR_MASK

// SetFilters installs the given receive filter rules, atomically replacing
// any previous set. A frame is delivered when it matches any rule (see
// SetJoinFilters for match-all semantics). An empty (or nil) set rejects
// every frame.
func (s *rawSocket) SetFilters(filters []Filter) error {
	var b []byte
	if len(filters) > 0 {
		b = unsafe.Slice((*byte)(unsafe.Pointer(&filters[0])),
			len(filters)*int(unsafe.Sizeof(filters[0])))
	}
	return s.setOptMulti(unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, b)
}

// SetFilterDropAll installs an empty rule set, disabling all frame
// reception.
func (s *rawSocket) SetFilterDropAll() error {
	return s.SetFilters(nil)
}

// SetFilterAcceptAll installs a single (0, 0) rule that matches every
// frame.
func (s *rawSocket) SetFilterAcceptAll() error {
	return s.SetFilters([]Filter{{}})
}

// SetErrorMask selects which error conditions the kernel reports as error
// frames on this socket. Zero (the default) reports none; ErrMaskAll
// reports everything.
func (s *rawSocket) SetErrorMask(mask uint32) error {
	return s.setOpt(unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, optBytes(&mask))
}

// SetLoopback toggles local echo of sent frames to other sockets on the
// same interface. Default on.
func (s *rawSocket) SetLoopback(enable bool) error {
	return s.setOptBool(unix.SOL_CAN_RAW, unix.CAN_RAW_LOOPBACK, enable)
}

// SetRecvOwnMsgs toggles reception of this socket's own transmitted frames
// (requires loopback). Default off.
func (s *rawSocket) SetRecvOwnMsgs(enable bool) error {
	return s.setOptBool(unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, enable)
}

// SetJoinFilters switches filter semantics from match-any (default) to
// match-all: a frame must then satisfy every installed rule to be
// delivered.
func (s *rawSocket) SetJoinFilters(enable bool) error {
	return s.setOptBool(unix.SOL_CAN_RAW, unix.CAN_RAW_JOIN_FILTERS, enable)
}

// setFDFrames toggles CAN FD frame support. Part of FD socket open; a
// socket's frame capability never changes afterwards.
func (s *rawSocket) setFDFrames(enable bool) error {
	return s.setOptBool(unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, enable)
}
