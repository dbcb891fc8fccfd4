package serial

import (
	"errors"
	"io"
	"testing"
)

// chunkPort accepts at most max bytes per Write call.
type chunkPort struct {
	max    int
	out    []byte
	err    error
	zeroAt int // if >0, return (0, nil) on this call number
	calls  int
}

func (c *chunkPort) Read(p []byte) (int, error) { return 0, io.EOF }
func (c *chunkPort) Close() error               { return nil }

func (c *chunkPort) Write(p []byte) (int, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	if c.zeroAt > 0 && c.calls == c.zeroAt {
		return 0, nil
	}
	n := len(p)
	if c.max > 0 && n > c.max {
		n = c.max
	}
	c.out = append(c.out, p[:n]...)
	return n, nil
}

func TestWriteLineRetriesShortWrites(t *testing.T) {
	p := &chunkPort{max: 3}
	if err := WriteLine(p, "t1232AABB\r"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if string(p.out) != "t1232AABB\r" {
		t.Fatalf("wrote %q", p.out)
	}
	if p.calls < 4 {
		t.Fatalf("expected several chunked writes, got %d", p.calls)
	}
}

func TestWriteLinePropagatesError(t *testing.T) {
	want := errors.New("device gone")
	p := &chunkPort{err: want}
	if err := WriteLine(p, "t0000\r"); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestWriteLineZeroProgress(t *testing.T) {
	p := &chunkPort{zeroAt: 1}
	if err := WriteLine(p, "t0000\r"); !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("err = %v, want ErrShortWrite", err)
	}
}
