package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/canlink/go-can-gateway/internal/can"
	"github.com/canlink/go-can-gateway/internal/hub"
)

// fakeDevice serves a scripted frame sequence, then blocks until closed.
type fakeDevice struct {
	mu     sync.Mutex
	frames []can.AnyFrame
	idx    int
	sent   []can.AnyFrame
	wrErr  error
	closed chan struct{}
	once   sync.Once
}

func newFakeDevice(frames ...can.AnyFrame) *fakeDevice {
	return &fakeDevice{frames: frames, closed: make(chan struct{})}
}

func (d *fakeDevice) ReadFrame() (can.AnyFrame, error) {
	d.mu.Lock()
	if d.idx < len(d.frames) {
		fr := d.frames[d.idx]
		d.idx++
		d.mu.Unlock()
		return fr, nil
	}
	d.mu.Unlock()
	<-d.closed
	return nil, errors.New("use of closed device")
}

func (d *fakeDevice) WriteFrameInsist(f can.AnyFrame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.wrErr != nil {
		return d.wrErr
	}
	d.sent = append(d.sent, f)
	return nil
}

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func withFakeDevice(t *testing.T, dev canDevice) {
	t.Helper()
	prev := openCANDevice
	openCANDevice = func(cfg *appConfig) (canDevice, error) { return dev, nil }
	t.Cleanup(func() { openCANDevice = prev })
}

func TestBusBackendBroadcastsFrames(t *testing.T) {
	f := can.Frame{ID: 0x42, Len: 1}
	f.Data[0] = 0x99
	fd := can.FDFrame{ID: 0x100, Len: 12, Flags: can.CANFD_BRS}
	dev := newFakeDevice(f, fd)
	withFakeDevice(t, dev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	cl := h.NewClient()
	h.Add(cl)

	var wg sync.WaitGroup
	_, cleanup, err := initBusBackend(ctx, &appConfig{canIf: "fake"}, h, slog.Default(), &wg)
	if err != nil {
		t.Fatalf("initBusBackend: %v", err)
	}

	for i, want := range []can.AnyFrame{f, fd} {
		select {
		case got := <-cl.Out:
			if got != want {
				t.Fatalf("frame %d = %#v, want %#v", i, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	cancel()
	cleanup()
	wg.Wait()
}

func TestBusBackendSendPath(t *testing.T) {
	dev := newFakeDevice()
	withFakeDevice(t, dev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	send, cleanup, err := initBusBackend(ctx, &appConfig{canIf: "fake"}, hub.New(), slog.Default(), &wg)
	if err != nil {
		t.Fatalf("initBusBackend: %v", err)
	}

	f := can.Frame{ID: 0x7, Len: 0}
	if err := send(f); err != nil {
		t.Fatalf("send: %v", err)
	}
	dev.mu.Lock()
	n := len(dev.sent)
	dev.mu.Unlock()
	if n != 1 {
		t.Fatalf("device saw %d frames, want 1", n)
	}

	dev.mu.Lock()
	dev.wrErr = errors.New("bus off")
	dev.mu.Unlock()
	if err := send(f); err == nil {
		t.Fatal("expected send error to propagate")
	}

	cancel()
	cleanup()
	wg.Wait()
}

// errDevice always fails reads to drive the backoff path.
type errDevice struct{}

func (errDevice) ReadFrame() (can.AnyFrame, error)    { return nil, errors.New("synthetic") }
func (errDevice) WriteFrameInsist(can.AnyFrame) error { return nil }
func (errDevice) Close() error                        { return nil }

func TestBusBackendBackoffProgression(t *testing.T) {
	withFakeDevice(t, errDevice{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []time.Duration
	prevSleep := sleepFn
	sleepFn = func(d time.Duration) {
		mu.Lock()
		if len(seen) < 6 {
			seen = append(seen, d)
			if len(seen) == 6 {
				cancel()
			}
		}
		mu.Unlock()
	}
	defer func() { sleepFn = prevSleep }()

	var wg sync.WaitGroup
	_, cleanup, err := initBusBackend(ctx, &appConfig{canIf: "fake"}, hub.New(), slog.Default(), &wg)
	if err != nil {
		t.Fatalf("initBusBackend: %v", err)
	}
	cleanup()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("expected at least 3 backoff samples, got %d", len(seen))
	}
	if seen[0] != rxBackoffMin {
		t.Fatalf("expected first backoff %v got %v", rxBackoffMin, seen[0])
	}
	prev := seen[0]
	for i, d := range seen {
		if d < prev {
			t.Fatalf("backoff decreased at %d: prev=%v cur=%v", i, prev, d)
		}
		if d > rxBackoffMax {
			t.Fatalf("backoff exceeded max at %d: %v > %v", i, d, rxBackoffMax)
		}
		prev = d
	}
}
