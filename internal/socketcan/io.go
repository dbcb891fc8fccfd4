//go:build linux

package socketcan

import (
	"errors"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// readFull reads exactly len(buf) bytes. Interrupted reads are retried
// transparently; a zero-byte read before the buffer is full means the
// source is exhausted and yields io.ErrUnexpectedEOF, never a truncated
// frame.
func (s *rawSocket) readFull(buf []byte) error {
	for off := 0; off < len(buf); {
		n, err := sysRead(s.fd, buf[off:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
		off += n
	}
	return nil
}

// readOnce performs a single read, retrying only when a signal interrupted
// the call before any data arrived.
func (s *rawSocket) readOnce(buf []byte) (int, error) {
	for {
		n, err := sysRead(s.fd, buf)
		if err != nil && errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

// waitReadable polls the descriptor for readability for up to d. Zero
// readiness maps to ErrTimeout. Signal interruptions restart the poll
// against the original deadline.
func (s *rawSocket) waitReadable(d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		ms := int(time.Until(deadline).Milliseconds())
		if ms < 0 {
			ms = 0
		}
		fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := sysPoll(fds, ms)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n == 0 {
			return ErrTimeout
		}
		return nil
	}
}

// write performs a single write attempt of the full buffer. Under
// back-pressure on a non-blocking socket it fails with a transient
// would-block error (see ShouldRetry).
func (s *rawSocket) write(buf []byte) error {
	n, err := sysWrite(s.fd, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// writeInsist retries write across transient would-block failures until it
// succeeds or fails terminally. This is a deliberate busy-retry with no
// backoff: bus writes are latency sensitive and the send buffer usually
// drains within a frame time. Callers needing bounded time impose their own
// deadline around the call.
func (s *rawSocket) writeInsist(buf []byte) error {
	for {
		err := s.write(buf)
		if err == nil || !ShouldRetry(err) {
			return err
		}
	}
}

// ReadTimeout reports the kernel receive timeout; zero means reads block
// indefinitely.
func (s *rawSocket) ReadTimeout() (time.Duration, error) {
	return s.timeout(unix.SO_RCVTIMEO)
}

// SetReadTimeout sets the kernel receive timeout. A zero duration makes
// reads block indefinitely. With a timeout set, blocking reads fail with a
// would-block error when it elapses; classify with ShouldRetry.
func (s *rawSocket) SetReadTimeout(d time.Duration) error {
	return s.setTimeout(unix.SO_RCVTIMEO, d)
}

// WriteTimeout reports the kernel send timeout; zero means writes block
// indefinitely.
func (s *rawSocket) WriteTimeout() (time.Duration, error) {
	return s.timeout(unix.SO_SNDTIMEO)
}

// SetWriteTimeout sets the kernel send timeout. A zero duration makes
// writes block indefinitely.
func (s *rawSocket) SetWriteTimeout(d time.Duration) error {
	return s.setTimeout(unix.SO_SNDTIMEO, d)
}
