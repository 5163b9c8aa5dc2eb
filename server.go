package chatroom

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Server accepts TCP connections and turns each one into an active
// session in its room.
type Server struct {
	listener        *net.TCPListener
	room            *Room
	logger          Logger
	metrics         *Metrics
	sessionOpts     []Option
	shutdownTimeout time.Duration

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{} // signals immediate shutdown, bypassing timeout
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerMetricsOption attaches metrics collectors to the server.
func ServerMetricsOption(metrics *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// ServerSessionOptions sets the options applied to every session the
// server constructs.
func ServerSessionOptions(opts ...Option) ServerOption {
	return func(s *Server) {
		s.sessionOpts = opts
	}
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout.
// When the context is canceled, the server will wait up to this duration
// before closing the listener. This gives existing sessions time to
// drain. Default is 0 (immediate shutdown).
//
// Note: This only delays listener closure. Active sessions are canceled
// through the context passed to Serve.
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// NewServer creates a TCP server bound to the specified address whose
// connections all join the given room. Returns an error if the address
// cannot be bound or the room is missing.
func NewServer(addr *net.TCPAddr, room *Room, opts ...ServerOption) (*Server, error) {
	if room == nil {
		return nil, ErrInvalidRoom
	}

	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		room:        room,
		logger:      defaultLogger(),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve accepts connections until the context is canceled or an
// unrecoverable error occurs. Each accepted connection gets its own
// session, activated on its own goroutine; accept errors other than
// shutdown are logged and, when temporary, survived. If
// ServerShutdownTimeoutOption is set, the server waits up to the
// specified duration before stopping. Call Close() to bypass the
// timeout and shut down immediately.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	// Unblock Accept when the context ends.
	go func() {
		<-ctx.Done()

		// Wait for shutdown timeout if configured, but allow early exit via Close()
		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
				// Timeout expired, proceed with shutdown
			case <-s.shutdownNow:
				// Close() was called, skip remaining timeout
				s.logger.Debug("shutdown timeout bypassed via Close()")
			}
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return ctx.Err()
			}

			// Check if it's a temporary error
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)
		if s.metrics != nil {
			s.metrics.ConnectionsAccepted.Inc()
		}

		session, err := NewSession(conn, s.room, s.sessionOpts...)
		if err != nil {
			s.logger.Error("session setup failed", "remote_addr", conn.RemoteAddr(), "error", err)
			_ = conn.Close()
			continue
		}

		go func() {
			// Join failures and transport errors are logged by the
			// session itself.
			_ = session.Activate(ctx)
		}()
	}
}

// Close stops the server by closing the underlying listener.
// If a shutdown timeout is configured, Close() bypasses the remaining
// timeout. Any blocked Accept calls will return with an error.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	// Signal to bypass any pending shutdown timeout
	select {
	case s.shutdownNow <- struct{}{}:
	default:
		// Channel already has a signal or no one is listening
	}

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
