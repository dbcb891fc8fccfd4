// Package slcan implements the SLCAN (serial line CAN) ASCII framing used
// on the gateway's TCP and serial transports. Classic frames use the
// t/T/r/R commands; FD data frames use the d/D extension.
package slcan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/canlink/go-can-gateway/internal/can"
)

// ErrMalformed wraps every decode rejection so callers can classify with
// errors.Is.
var ErrMalformed = errors.New("slcan: malformed frame")

// fdLens are the payload sizes CAN FD allows, indexed by the SLCAN dlc
// code character '0'..'9','A'..'F' ('9' and up cover the >8 byte sizes).
var fdLens = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// fdDLCFor returns the dlc code of the smallest valid FD payload size that
// fits n bytes.
func fdDLCFor(n uint8) int {
	for code, l := range fdLens {
		if l >= n {
			return code
		}
	}
	return len(fdLens) - 1
}

// EncodeFrame renders one frame as an SLCAN line including the trailing
// carriage return.
func EncodeFrame(fr can.AnyFrame) string {
	var b strings.Builder
	switch f := fr.(type) {
	case can.Frame:
		switch {
		case f.RTR() && f.Extended():
			b.WriteByte('R')
		case f.RTR():
			b.WriteByte('r')
		case f.Extended():
			b.WriteByte('T')
		default:
			b.WriteByte('t')
		}
		writeID(&b, f.RawID(), f.Extended())
		b.WriteByte(hexDigit(int(f.Len)))
		if !f.RTR() {
			for i := uint8(0); i < f.Len && i < can.MaxDataLen; i++ {
				fmt.Fprintf(&b, "%02X", f.Data[i])
			}
		}
	case can.FDFrame:
		if f.Extended() {
			b.WriteByte('D')
		} else {
			b.WriteByte('d')
		}
		writeID(&b, f.RawID(), f.Extended())
		code := fdDLCFor(f.Len)
		b.WriteByte(hexDigit(code))
		// Payload is padded up to the dlc size the code names.
		for i := uint8(0); i < fdLens[code]; i++ {
			fmt.Fprintf(&b, "%02X", f.Data[i])
		}
	}
	b.WriteByte('\r')
	return b.String()
}

func writeID(b *strings.Builder, id uint32, extended bool) {
	if extended {
		fmt.Fprintf(b, "%08X", id&can.CAN_EFF_MASK)
	} else {
		fmt.Fprintf(b, "%03X", id&can.CAN_SFF_MASK)
	}
}

func hexDigit(n int) byte {
	const digits = "0123456789ABCDEF"
	return digits[n&0xF]
}

// DecodeFrame parses one SLCAN line (without the trailing carriage
// return) into a frame. Unknown commands and truncated lines are rejected
// with an error wrapping ErrMalformed.
func DecodeFrame(line string) (can.AnyFrame, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformed)
	}
	cmd := line[0]
	body := line[1:]

	extended := cmd == 'T' || cmd == 'R' || cmd == 'D'
	idLen := 3
	if extended {
		idLen = 8
	}
	if len(body) < idLen+1 {
		return nil, fmt.Errorf("%w: truncated %q", ErrMalformed, line)
	}
	id64, err := strconv.ParseUint(body[:idLen], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad identifier in %q", ErrMalformed, line)
	}
	id := uint32(id64)
	if extended {
		id = (id & can.CAN_EFF_MASK) | can.CAN_EFF_FLAG
	} else {
		id &= can.CAN_SFF_MASK
	}
	code := hexValue(body[idLen])
	if code < 0 {
		return nil, fmt.Errorf("%w: bad length in %q", ErrMalformed, line)
	}
	payload := body[idLen+1:]

	switch cmd {
	case 't', 'T':
		if code > can.MaxDataLen {
			return nil, fmt.Errorf("%w: classic dlc %d in %q", ErrMalformed, code, line)
		}
		f := can.Frame{ID: id, Len: uint8(code)}
		if err := readHex(payload, f.Data[:f.Len]); err != nil {
			return nil, fmt.Errorf("%w: %v in %q", ErrMalformed, err, line)
		}
		return f, nil
	case 'r', 'R':
		if code > can.MaxDataLen {
			return nil, fmt.Errorf("%w: classic dlc %d in %q", ErrMalformed, code, line)
		}
		if payload != "" {
			return nil, fmt.Errorf("%w: payload on RTR %q", ErrMalformed, line)
		}
		return can.Frame{ID: id | can.CAN_RTR_FLAG, Len: uint8(code)}, nil
	case 'd', 'D':
		f := can.FDFrame{ID: id, Len: fdLens[code]}
		if err := readHex(payload, f.Data[:f.Len]); err != nil {
			return nil, fmt.Errorf("%w: %v in %q", ErrMalformed, err, line)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrMalformed, line)
	}
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}

func readHex(s string, dst []byte) error {
	if len(s) != 2*len(dst) {
		return fmt.Errorf("payload length %d, want %d hex chars", len(s), 2*len(dst))
	}
	for i := range dst {
		hi, lo := hexValue(s[2*i]), hexValue(s[2*i+1])
		if hi < 0 || lo < 0 {
			return fmt.Errorf("bad hex byte %q", s[2*i:2*i+2])
		}
		dst[i] = byte(hi<<4 | lo)
	}
	return nil
}
