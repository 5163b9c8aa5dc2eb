package chatroom

import (
	"errors"
	"io"
	"sync"

	"github.com/samber/lo"
)

// HistoryLimit is the number of recent frames a room retains for replay
// to late joiners.
const HistoryLimit = 50

// ErrRoomFull is returned by Join when the room is at capacity.
var ErrRoomFull = errors.New("room at capacity")

// Room mediates between participants. It holds the membership set and a
// sliding window of the most recent broadcast frames, replayed to every
// participant that joins. All state is guarded by a single mutex; each
// operation is one critical section, so history order and delivery order
// agree for every member.
type Room struct {
	logger          Logger
	metrics         *Metrics
	maxParticipants int

	mu      sync.Mutex
	members map[Participant]struct{}
	history []Frame
}

// RoomOption configures a Room.
type RoomOption func(*Room)

// RoomLoggerOption sets the logger for the room.
func RoomLoggerOption(logger Logger) RoomOption {
	return func(r *Room) {
		r.logger = logger
	}
}

// RoomMetricsOption attaches metrics collectors to the room.
func RoomMetricsOption(metrics *Metrics) RoomOption {
	return func(r *Room) {
		r.metrics = metrics
	}
}

// MaxParticipantsOption caps concurrent membership. Zero or negative
// means unlimited, which is the default.
func MaxParticipantsOption(n int) RoomOption {
	return func(r *Room) {
		r.maxParticipants = n
	}
}

// NewRoom creates an empty room.
func NewRoom(opts ...RoomOption) *Room {
	r := &Room{
		logger:  defaultLogger(),
		members: make(map[Participant]struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Join adds a participant to the room and replays the retained history
// to it, oldest first, before any later broadcast can reach it. Joining
// a current member is a no-op. Returns ErrRoomFull when the room is at
// capacity.
func (r *Room) Join(p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[p]; ok {
		return nil
	}

	if r.maxParticipants > 0 && len(r.members) >= r.maxParticipants {
		return ErrRoomFull
	}

	r.members[p] = struct{}{}
	if r.metrics != nil {
		r.metrics.ActiveParticipants.Inc()
	}

	for _, frame := range r.history {
		if err := p.Deliver(frame); err != nil {
			r.drop(p)
			return err
		}
	}

	if r.metrics != nil {
		r.metrics.HistoryReplayed.Add(float64(len(r.history)))
	}

	r.logger.Debug("participant joined", "members", len(r.members), "replayed", len(r.history))
	return nil
}

// Leave removes a participant from the room. Leaving a room the
// participant is not in is a no-op, so disconnect paths may call it
// unconditionally.
func (r *Room) Leave(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[p]; !ok {
		return
	}

	delete(r.members, p)
	if r.metrics != nil {
		r.metrics.ActiveParticipants.Dec()
	}

	r.logger.Debug("participant left", "members", len(r.members))
}

// Broadcast appends the frame to the history window and delivers it to
// every member except the sender. Delivery only enqueues, so a slow peer
// never stalls the room; a member whose queue is full is dropped and
// closed. A nil sender delivers to everyone.
func (r *Room) Broadcast(sender Participant, frame Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, frame)
	if len(r.history) > HistoryLimit {
		r.history = r.history[1:]
	}
	if r.metrics != nil {
		r.metrics.Broadcasts.Inc()
	}

	for member := range r.members {
		if member == sender {
			continue
		}

		if err := member.Deliver(frame); err != nil {
			r.logger.Warn("dropping unresponsive participant", "error", err)
			r.drop(member)
			if r.metrics != nil {
				r.metrics.FramesDropped.Inc()
			}
			continue
		}

		if r.metrics != nil {
			r.metrics.FramesDelivered.Inc()
		}
	}
}

// Members returns a snapshot of the current membership.
func (r *Room) Members() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.members)
}

// History returns a copy of the retained frame window, oldest first.
func (r *Room) History() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]Frame, len(r.history))
	copy(history, r.history)
	return history
}

// drop removes a failed member and closes its transport if it has one.
// Caller must hold r.mu. Closing here is safe because participants
// close without touching the room.
func (r *Room) drop(p Participant) {
	delete(r.members, p)
	if r.metrics != nil {
		r.metrics.ActiveParticipants.Dec()
	}
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
