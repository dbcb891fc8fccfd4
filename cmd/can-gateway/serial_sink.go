package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/canlink/go-can-gateway/internal/hub"
	"github.com/canlink/go-can-gateway/internal/metrics"
	"github.com/canlink/go-can-gateway/internal/serial"
	"github.com/canlink/go-can-gateway/internal/slcan"
)

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// startSerialSink attaches a hub client that mirrors bus traffic to a
// serial device as SLCAN lines. A no-op when no device is configured.
func startSerialSink(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (func(), error) {
	if cfg.serialDev == "" {
		return func() {}, nil
	}
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_sink_open", "device", cfg.serialDev, "baud", cfg.baud)
	cl := h.NewClient()
	h.Add(cl)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("serial_sink_end")
		defer h.Remove(cl)
		for {
			select {
			case <-ctx.Done():
				return
			case <-cl.Closed:
				return
			case fr := <-cl.Out:
				if err := serial.WriteLine(sp, slcan.EncodeFrame(fr)); err != nil {
					metrics.IncError(metrics.ErrSerialTx)
					l.Warn("serial_sink_write_error", "error", err)
					return
				}
				metrics.IncSerialTx()
			}
		}
	}()
	return func() { h.Remove(cl); _ = sp.Close() }, nil
}
