package chatroom

// Participant is the capability a Room requires of its members. The
// Room never depends on a concrete transport; anything that can receive
// and submit frames may join, including non-network members.
type Participant interface {
	// Deliver hands the participant a frame to forward to its peer.
	// It must not block; a participant that cannot accept the frame
	// returns an error and the room drops it.
	Deliver(frame Frame) error
	// Write submits a frame on the participant's behalf for broadcast.
	Write(frame Frame) error
}

// Transcript is a Participant that records every frame delivered to it
// through its logger. It never submits frames of its own. Joining one to
// a room produces an audit trail of all broadcast traffic.
type Transcript struct {
	logger Logger
}

// NewTranscript creates a transcript participant that logs through the
// given logger. A nil logger falls back to the default.
func NewTranscript(logger Logger) *Transcript {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Transcript{logger: logger}
}

// Deliver logs the frame and always succeeds.
func (t *Transcript) Deliver(frame Frame) error {
	t.logger.Info("frame observed", "length", frame.Length(), "body", string(frame.Body()))
	return nil
}

// Write is a no-op; a transcript only observes.
func (t *Transcript) Write(Frame) error {
	return nil
}
