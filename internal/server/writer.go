package server

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"

	"github.com/canlink/go-can-gateway/internal/hub"
	"github.com/canlink/go-can-gateway/internal/metrics"
	"github.com/canlink/go-can-gateway/internal/slcan"
)

// startWriter launches the goroutine pushing hub frames to a single client
// connection as SLCAN lines. Lines are buffered while the client channel
// has more frames pending and flushed when it drains.
func (s *Server) startWriter(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = conn.Close()
			s.hub.Remove(cl)
			logger.Info("client_disconnected")
		}()
		bw := bufio.NewWriter(conn)
		pending := 0
		flush := func() error {
			if pending == 0 {
				return nil
			}
			if err := bw.Flush(); err != nil {
				wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
				metrics.IncError(mapErrToMetric(wrap))
				return wrap
			}
			metrics.AddTCPTx(pending)
			pending = 0
			return nil
		}
		for {
			select {
			case fr := <-cl.Out:
				if _, err := bw.WriteString(slcan.EncodeFrame(fr)); err != nil {
					metrics.IncError(metrics.ErrTCPWrite)
					return
				}
				pending++
				if len(cl.Out) == 0 || bw.Available() < 256 {
					if err := flush(); err != nil {
						return
					}
				}
			case <-cl.Closed:
				_ = flush()
				return
			case <-ctxDone:
				_ = flush()
				return
			}
		}
	}()
}
