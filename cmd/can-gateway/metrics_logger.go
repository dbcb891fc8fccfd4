package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/canlink/go-can-gateway/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"bus_rx", snap.BusRx,
					"bus_tx", snap.BusTx,
					"bus_err", snap.BusErr,
					"tcp_rx", snap.TCPRx,
					"tcp_tx", snap.TCPTx,
					"serial_tx", snap.SerialTx,
					"hub_drops", snap.HubDrops,
					"hub_kicks", snap.HubKicks,
					"malformed", snap.Malformed,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
