package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canlink/go-can-gateway/internal/can"
	"github.com/canlink/go-can-gateway/internal/hub"
	"github.com/canlink/go-can-gateway/internal/metrics"
)

// canDevice is the bus surface the gateway needs; the concrete type is
// a raw CAN socket, fakes stand in during tests.
type canDevice interface {
	ReadFrame() (can.AnyFrame, error)
	WriteFrameInsist(can.AnyFrame) error
	Close() error
}

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// initBusBackend opens the CAN device, starts its RX loop and returns a
// frame sender plus cleanup. It returns an error instead of exiting the
// process to allow graceful handling by the caller.
func initBusBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (func(can.AnyFrame) error, func(), error) {
	dev, err := openCANDevice(cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("can open %s: %w", cfg.canIf, err)
	}
	l.Info("can_open", "if", cfg.canIf, "fd", cfg.canFD)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("can_rx_end")
		backoff := rxBackoffMin
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			fr, err := dev.ReadFrame()
			if err != nil {
				if ctx.Err() != nil { // shutting down
					return
				}
				metrics.IncError(metrics.ErrBusRead)
				l.Warn("can_read_error", "error", err, "backoff", backoff)
				sleepFn(backoff)
				backoff *= 2
				if backoff > rxBackoffMax {
					backoff = rxBackoffMax
				}
				continue
			}
			countBusFrame(fr)
			h.Broadcast(fr)
			backoff = rxBackoffMin
		}
	}()
	send := func(fr can.AnyFrame) error {
		if err := dev.WriteFrameInsist(fr); err != nil {
			metrics.IncError(metrics.ErrBusWrite)
			return err
		}
		metrics.IncBusTx()
		return nil
	}
	return send, func() { _ = dev.Close() }, nil
}

// countBusFrame splits RX accounting between data and error frames.
func countBusFrame(fr can.AnyFrame) {
	if cf, ok := fr.(can.Frame); ok && cf.Err() {
		metrics.IncBusErr()
		return
	}
	metrics.IncBusRx()
}
