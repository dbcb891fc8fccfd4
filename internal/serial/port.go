// Package serial wraps tarm/serial behind a small interface so the
// SLCAN sink can be driven by fakes in tests.
package serial

import (
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is the device surface the gateway needs.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens a serial device for SLCAN output.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}

// WriteLine writes one SLCAN line to the port, retrying short writes.
func WriteLine(p Port, line string) error {
	buf := []byte(line)
	for len(buf) > 0 {
		n, err := p.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}
