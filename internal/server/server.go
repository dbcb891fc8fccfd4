// Package server exposes the gateway over TCP. Each client receives the bus
// frame stream as SLCAN lines and may transmit by sending SLCAN lines back.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/canlink/go-can-gateway/internal/can"
	"github.com/canlink/go-can-gateway/internal/hub"
	"github.com/canlink/go-can-gateway/internal/logging"
	"github.com/canlink/go-can-gateway/internal/metrics"
)

// SendFunc transmits a frame of either kind on the bus.
type SendFunc func(can.AnyFrame) error

// Server owns the TCP listener and coordinates client lifecycle.
type Server struct {
	addr string
	hub  *hub.Hub
	send SendFunc

	readDeadline time.Duration
	maxClients   int
	logger       *slog.Logger

	readyOnce  sync.Once
	readyCh    chan struct{}
	mu         sync.Mutex
	listener   net.Listener
	wg         sync.WaitGroup
	nextConnID uint64
}

const defaultReadDeadline = 60 * time.Second

type Option func(*Server)

func New(opts ...Option) *Server {
	s := &Server{
		addr:         ":0",
		readDeadline: defaultReadDeadline,
		readyCh:      make(chan struct{}),
		logger:       logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func WithListenAddr(a string) Option     { return func(s *Server) { s.addr = a } }
func WithHub(hb *hub.Hub) Option         { return func(s *Server) { s.hub = hb } }
func WithSend(send SendFunc) Option      { return func(s *Server) { s.send = send } }
func WithLogger(l *slog.Logger) Option   { return func(s *Server) { s.logger = l } }
func WithMaxClients(n int) Option        { return func(s *Server) { s.maxClients = n } }

func WithReadDeadline(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readDeadline = d
		}
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

// Addr returns the bound listen address (valid after Ready).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Serve accepts clients until ctx is cancelled. It returns nil on clean
// shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListen, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			metrics.IncError(mapErrToMetric(fmt.Errorf("%w: %v", ErrAccept, err)))
			return fmt.Errorf("%w: %v", ErrAccept, err)
		}
		if s.maxClients > 0 && s.hub.Count() >= s.maxClients {
			metrics.IncHubReject()
			s.logger.Warn("client_rejected", "remote", conn.RemoteAddr().String(), "max", s.maxClients)
			_ = conn.Close()
			continue
		}
		s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	s.nextConnID++
	logger := s.logger.With("conn", s.nextConnID, "remote", conn.RemoteAddr().String())
	logger.Info("client_connected")

	cl := s.hub.NewClient()
	s.hub.Add(cl)
	s.startWriter(ctx.Done(), conn, cl, logger)
	s.startReader(ctx.Done(), conn, cl, logger)
}
