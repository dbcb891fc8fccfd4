package server

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/canlink/go-can-gateway/internal/hub"
	"github.com/canlink/go-can-gateway/internal/metrics"
	"github.com/canlink/go-can-gateway/internal/slcan"
)

// SLCAN acknowledgements: a bare CR for accepted commands, BEL for
// rejected ones, the usual version/serial answers for V and N.
var (
	ackOK     = []byte{'\r'}
	ackErr    = []byte{0x07}
	ackVer    = []byte("V1013\r")
	ackSerial = []byte("N0000\r")
)

// scanSLCAN splits the inbound stream on CR or LF, tolerating either line
// ending and skipping empty lines.
func scanSLCAN(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (s *Server) startReader(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close() }()

		sc := bufio.NewScanner(conn)
		sc.Split(scanSLCAN)
		for {
			select {
			case <-ctxDone:
				return
			case <-cl.Closed:
				return
			default:
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
			if !sc.Scan() {
				err := sc.Err()
				if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					return
				}
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					// The scanner cannot be rearmed after a timeout, so an
					// idle client costs the connection.
					logger.Debug("client_idle_timeout")
					return
				}
				wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
				metrics.IncError(mapErrToMetric(wrap))
				logger.Warn("client_read_error", "error", err)
				return
			}
			line := sc.Text()
			if line == "" {
				continue
			}
			s.handleLine(conn, line, logger)
		}
	}()
}

// handleLine processes one SLCAN command from a client.
func (s *Server) handleLine(conn net.Conn, line string, logger *slog.Logger) {
	switch line[0] {
	case 't', 'T', 'r', 'R', 'd', 'D':
		fr, err := slcan.DecodeFrame(line)
		if err != nil {
			metrics.IncMalformed()
			logger.Debug("malformed_line", "line", line, "error", err)
			_, _ = conn.Write(ackErr)
			return
		}
		metrics.IncTCPRx()
		if err := s.send(fr); err != nil {
			wrap := fmt.Errorf("%w: %v", ErrBackendTx, err)
			metrics.IncError(mapErrToMetric(wrap))
			logger.Error("bus_tx_error", "error", err)
			_, _ = conn.Write(ackErr)
			return
		}
		_, _ = conn.Write(ackOK)
	case 'V':
		_, _ = conn.Write(ackVer)
	case 'N':
		_, _ = conn.Write(ackSerial)
	case 'O', 'C', 'L', 'S', 's', 'F', 'Z', 'M', 'm':
		// Channel open/close, bitrate and filter commands are owned by the
		// gateway configuration, not by clients; acknowledge and ignore.
		_, _ = conn.Write(ackOK)
	default:
		metrics.IncMalformed()
		_, _ = conn.Write(ackErr)
	}
}
