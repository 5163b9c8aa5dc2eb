// Package chatroom implements a single-room TCP broadcast chat service.
// Frames carry a 4-byte decimal length header, a Session owns each
// connection's framed I/O, and a Room mediates membership, history
// replay, and fan-out between participants.
package chatroom

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Errors returned by session operations.
var (
	// ErrInvalidRoom is returned when no room is provided.
	ErrInvalidRoom = errors.New("invalid room")
	// ErrSessionClosed is returned when operating on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrQueueFull is returned when the outbound queue cannot accept
	// another frame. The room treats it as a signal to drop the member.
	ErrQueueFull = errors.New("outbound queue full")
)

// Session binds one TCP connection to a room. Construction is inert:
// NewSession allocates state but touches neither the network nor the
// room until Activate is called.
//
// A session is a Participant. Inbound frames from its connection are
// broadcast to the room; frames the room delivers are queued and written
// back by a single writer, so transmissions never interleave and go out
// in delivery order.
type Session struct {
	id      string
	rawConn *net.TCPConn
	reader  *bufio.Reader
	room    *Room
	logger  Logger

	opts options

	outbound chan Frame
	closed   atomic.Bool
}

// NewSession creates an inert session for the given connection. It
// applies the provided options and validates them before returning.
func NewSession(conn *net.TCPConn, room *Room, opt ...Option) (*Session, error) {
	if room == nil {
		return nil, ErrInvalidRoom
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	return &Session{
		id:       uuid.NewString(),
		rawConn:  conn,
		reader:   bufio.NewReaderSize(conn, MaxFrameSize),
		room:     room,
		logger:   opts.logger,
		opts:     opts,
		outbound: make(chan Frame, opts.queueSize),
	}, nil
}

// Activate joins the room and runs the session's read and write loops,
// blocking until the connection ends. Joining first means the history
// replay is queued before any frame the read loop could provoke.
//
// A clean peer disconnect and a cancellation both return nil; transport
// failures and protocol violations return the underlying error. Either
// way the connection is closed and the room membership released before
// Activate returns.
func (s *Session) Activate(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	if err := s.room.Join(s); err != nil {
		s.closeConn()
		return err
	}

	s.logger.Info("connection established", "session", s.id, "addr", s.Addr())
	s.logger.Debug("session options", "session", s.id,
		"queue_size", s.opts.queueSize,
		"idle_timeout", s.opts.idleTimeout)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.readLoop(child)
	})

	group.Go(func() error {
		return s.writeLoop(child)
	})

	// Unblocks a pending read when the context ends.
	group.Go(func() error {
		<-child.Done()
		s.closeConn()
		return child.Err()
	})

	err := group.Wait()
	s.closeConn()
	s.room.Leave(s)

	if s.isCleanDisconnect(err) {
		s.logger.Info("client disconnected", "session", s.id, "addr", s.Addr())
		return nil
	}

	s.logger.Info("connection closed with error", "session", s.id, "addr", s.Addr(), "error", err)
	return err
}

// isCleanDisconnect reports whether the session ended without anything
// worth surfacing: an orderly EOF, a cancellation, or our own close
// racing the loops. An abrupt reset or a corrupt header is not clean.
func (s *Session) isCleanDisconnect(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, ErrSessionClosed)
}

// ID returns the session's unique identifier, used for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Addr returns the remote address of the connection.
func (s *Session) Addr() net.Addr {
	return s.rawConn.RemoteAddr()
}

// Close terminates the session. Closing the transport aborts any
// pending read or write, which drives the loops to exit; room
// membership is released by Activate on its way out. Safe to call
// multiple times and from any goroutine, including concurrently with
// Activate.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil // already closed
	}
	return s.rawConn.Close()
}

// IsClosed returns true if the session has been closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Deliver queues a frame for transmission to this session's peer. It
// never blocks: a full queue returns ErrQueueFull and a closed session
// returns ErrSessionClosed, both harmless to the caller.
func (s *Session) Deliver(frame Frame) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	select {
	case s.outbound <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Write broadcasts a frame to the room on this session's behalf. The
// session does not receive its own frame back.
func (s *Session) Write(frame Frame) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.room.Broadcast(s, frame)
	return nil
}

// readLoop reads frames off the wire and broadcasts each one. Framing
// errors are fatal: a corrupt header leaves no way to find the next
// frame boundary, so the connection is dropped rather than resynced.
// The loop never recurses, so stack depth is constant regardless of
// traffic.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if s.opts.idleTimeout > 0 {
				_ = s.rawConn.SetReadDeadline(time.Now().Add(s.opts.idleTimeout))
			}

			frame, err := ReadFrame(s.reader)
			if err != nil {
				s.logger.Debug("read error", "session", s.id, "error", err)
				return err
			}

			// A read can race a close and still complete off buffered
			// bytes; a closed session must not broadcast.
			if s.closed.Load() {
				return ErrSessionClosed
			}

			s.room.Broadcast(s, frame)
		}
	}
}

// writeLoop drains the outbound queue to the connection. It is the only
// writer, so at most one transmission is in flight and frames leave in
// the order they were delivered.
func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-s.outbound:
			if err := s.write(frame); err != nil {
				s.logger.Debug("write error", "session", s.id, "error", err)
				return err
			}
		}
	}
}

// write encodes and sends one frame with a deadline.
func (s *Session) write(frame Frame) error {
	if s.opts.idleTimeout > 0 {
		_ = s.rawConn.SetWriteDeadline(time.Now().Add(s.opts.idleTimeout))
	}
	_, err := s.rawConn.Write(frame.Encode())
	return err
}

// closeConn marks the session as closed and closes the TCP connection.
func (s *Session) closeConn() {
	s.closed.Store(true)
	_ = s.rawConn.Close()
}
