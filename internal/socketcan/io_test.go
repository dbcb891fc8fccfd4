//go:build linux

package socketcan

import (
	"errors"
	"io"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// scriptedRead replaces the read seam with a scripted sequence of results.
// Each step either returns an error or copies its bytes into the buffer.
type readStep struct {
	data []byte
	err  error
}

func scriptReads(t *testing.T, steps []readStep) {
	t.Helper()
	old := sysRead
	i := 0
	sysRead = func(fd int, p []byte) (int, error) {
		if i >= len(steps) {
			t.Fatalf("unexpected read call %d", i)
		}
		st := steps[i]
		i++
		if st.err != nil {
			return 0, st.err
		}
		return copy(p, st.data), nil
	}
	t.Cleanup(func() { sysRead = old })
}

func TestReadFullAssemblesAcrossInterrupts(t *testing.T) {
	scriptReads(t, []readStep{
		{data: []byte{1, 2, 3}},
		{err: unix.EINTR},
		{data: []byte{4, 5}},
	})
	s := &rawSocket{fd: 3}
	buf := make([]byte, 5)
	if err := s.readFull(buf); err != nil {
		t.Fatalf("readFull: %v", err)
	}
	for i, b := range buf {
		if int(b) != i+1 {
			t.Fatalf("buf[%d] = %d", i, b)
		}
	}
}

func TestReadFullUnexpectedEOF(t *testing.T) {
	scriptReads(t, []readStep{
		{data: []byte{1, 2}},
		{data: nil}, // zero bytes: source exhausted mid-frame
	})
	s := &rawSocket{fd: 3}
	err := s.readFull(make([]byte, 4))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadFullPropagatesHardError(t *testing.T) {
	scriptReads(t, []readStep{{err: unix.ENODEV}})
	s := &rawSocket{fd: 3}
	if err := s.readFull(make([]byte, 4)); !errors.Is(err, unix.ENODEV) {
		t.Fatalf("err = %v, want ENODEV", err)
	}
}

func TestWaitReadableTimesOut(t *testing.T) {
	old := sysPoll
	sysPoll = func(fds []unix.PollFd, timeout int) (int, error) { return 0, nil }
	t.Cleanup(func() { sysPoll = old })

	s := &rawSocket{fd: 3}
	if err := s.waitReadable(10 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestWaitReadableRetriesInterruptedPoll(t *testing.T) {
	old := sysPoll
	calls := 0
	sysPoll = func(fds []unix.PollFd, timeout int) (int, error) {
		calls++
		if calls == 1 {
			return 0, unix.EINTR
		}
		if fds[0].Events&unix.POLLIN == 0 {
			t.Fatal("poll not armed for POLLIN")
		}
		return 1, nil
	}
	t.Cleanup(func() { sysPoll = old })

	s := &rawSocket{fd: 3}
	if err := s.waitReadable(50 * time.Millisecond); err != nil {
		t.Fatalf("waitReadable: %v", err)
	}
	if calls != 2 {
		t.Fatalf("poll called %d times, want 2", calls)
	}
}

func TestWriteShortWrite(t *testing.T) {
	old := sysWrite
	sysWrite = func(fd int, p []byte) (int, error) { return len(p) - 1, nil }
	t.Cleanup(func() { sysWrite = old })

	s := &rawSocket{fd: 3}
	if err := s.write(make([]byte, 16)); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("err = %v, want io.ErrShortWrite", err)
	}
}

func TestWriteInsistRetriesWouldBlock(t *testing.T) {
	old := sysWrite
	attempts := 0
	sysWrite = func(fd int, p []byte) (int, error) {
		attempts++
		if attempts <= 5 {
			return 0, unix.EAGAIN
		}
		return len(p), nil
	}
	t.Cleanup(func() { sysWrite = old })

	s := &rawSocket{fd: 3}
	if err := s.writeInsist(make([]byte, 16)); err != nil {
		t.Fatalf("writeInsist: %v", err)
	}
	if attempts != 6 {
		t.Fatalf("write attempted %d times, want 6", attempts)
	}
}

func TestWriteInsistStopsOnTerminalError(t *testing.T) {
	old := sysWrite
	attempts := 0
	sysWrite = func(fd int, p []byte) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, unix.EAGAIN
		}
		return 0, unix.ENOBUFS
	}
	t.Cleanup(func() { sysWrite = old })

	s := &rawSocket{fd: 3}
	if err := s.writeInsist(make([]byte, 16)); !errors.Is(err, unix.ENOBUFS) {
		t.Fatalf("err = %v, want ENOBUFS", err)
	}
	if attempts != 2 {
		t.Fatalf("write attempted %d times, want 2", attempts)
	}
}

func TestTimeoutPassthrough(t *testing.T) {
	calls := captureSetsockopt(t)
	oldGet := sysGetTimeval
	var stored unix.Timeval
	sysGetTimeval = func(fd, level, opt int) (*unix.Timeval, error) {
		tv := stored
		return &tv, nil
	}
	t.Cleanup(func() { sysGetTimeval = oldGet })

	s := &rawSocket{fd: 3}
	if err := s.SetReadTimeout(1500 * time.Millisecond); err != nil {
		t.Fatalf("SetReadTimeout: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("setsockopt called %d times, want 1", len(*calls))
	}
	c := (*calls)[0]
	if c.level != unix.SOL_SOCKET || c.name != unix.SO_RCVTIMEO {
		t.Fatalf("wrong option: level=%d name=%d", c.level, c.name)
	}

	stored = unix.NsecToTimeval((2 * time.Second).Nanoseconds())
	d, err := s.ReadTimeout()
	if err != nil {
		t.Fatalf("ReadTimeout: %v", err)
	}
	if d != 2*time.Second {
		t.Fatalf("ReadTimeout = %v, want 2s", d)
	}

	// Zero duration means block indefinitely.
	stored = unix.Timeval{}
	d, err = s.WriteTimeout()
	if err != nil {
		t.Fatalf("WriteTimeout: %v", err)
	}
	if d != 0 {
		t.Fatalf("WriteTimeout = %v, want 0", d)
	}
}
