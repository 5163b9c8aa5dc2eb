package gateway

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Zereker/chatroom"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second
	// pingPeriod is the interval between pings; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound WebSocket messages. Deliberately
	// larger than a frame body so oversize messages can be rejected
	// without killing the connection.
	maxMessageSize = 64 * 1024
	// sendQueueSize is the capacity of the outbound frame queue.
	sendQueueSize = 256
)

// participant adapts one WebSocket connection to the room's Participant
// capability. Frame bodies travel as binary messages; the WebSocket's
// own message boundaries replace the length header used on raw TCP.
type participant struct {
	id     string
	conn   *websocket.Conn
	room   *chatroom.Room
	logger chatroom.Logger

	send   chan chatroom.Frame
	closed atomic.Bool
	done   chan struct{}
}

func newParticipant(conn *websocket.Conn, room *chatroom.Room, logger chatroom.Logger) *participant {
	return &participant{
		id:     uuid.NewString(),
		conn:   conn,
		room:   room,
		logger: logger,
		send:   make(chan chatroom.Frame, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// run joins the room and pumps the connection until it ends. Membership
// is released before run returns.
func (p *participant) run() {
	if err := p.room.Join(p); err != nil {
		p.logger.Warn("websocket join rejected", "participant", p.id, "error", err)
		_ = p.conn.Close()
		return
	}

	p.logger.Info("websocket participant joined", "participant", p.id, "remote_addr", p.conn.RemoteAddr())

	go p.writePump()
	p.readPump()

	p.room.Leave(p)
	_ = p.Close()

	p.logger.Info("websocket participant left", "participant", p.id)
}

// Deliver queues a frame for the peer without blocking. A full queue or
// a closed participant returns an error and the room drops the member.
func (p *participant) Deliver(frame chatroom.Frame) error {
	if p.closed.Load() {
		return chatroom.ErrSessionClosed
	}

	select {
	case p.send <- frame:
		return nil
	default:
		return chatroom.ErrQueueFull
	}
}

// Write broadcasts a frame to the room on this participant's behalf.
func (p *participant) Write(frame chatroom.Frame) error {
	if p.closed.Load() {
		return chatroom.ErrSessionClosed
	}
	p.room.Broadcast(p, frame)
	return nil
}

// Close terminates the participant. Safe to call multiple times, and
// safe to call from the room while it holds its lock.
func (p *participant) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	close(p.done)
	return p.conn.Close()
}

// readPump reads messages off the socket and broadcasts each as a
// frame. Oversize messages are logged and skipped; the connection
// survives because message boundaries are not lost.
func (p *participant) readPump() {
	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.logger.Debug("websocket read ended", "participant", p.id, "error", err)
			return
		}

		frame, err := chatroom.NewFrame(data)
		if err != nil {
			p.logger.Warn("oversize message skipped", "participant", p.id, "size", len(data))
			continue
		}

		// A read can race a close; a closed participant must not
		// broadcast.
		if p.closed.Load() {
			return
		}

		p.room.Broadcast(p, frame)
	}
}

// writePump is the sole writer on the socket. It drains the send queue
// in order and keeps the connection alive with pings.
func (p *participant) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.BinaryMessage, frame.Body()); err != nil {
				_ = p.Close()
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = p.Close()
				return
			}
		case <-p.done:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func slogDefault() chatroom.Logger {
	return slog.Default()
}
