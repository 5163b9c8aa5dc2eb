package chatroom

import (
	"time"
)

// Default configuration values.
const (
	// defaultQueueSize is the default capacity of a session's outbound
	// frame queue. It comfortably covers a full history replay.
	defaultQueueSize = 256
)

// options holds the configuration for a session.
type options struct {
	logger Logger

	queueSize int // capacity of the outbound frame queue
	// idleTimeout bounds how long a single read or write may sit idle
	// before the deadline expires. Zero disables deadlines.
	idleTimeout time.Duration
}

// Option is a function that configures session options.
type Option func(*options)

// QueueSizeOption returns an Option that sets the capacity of the
// outbound frame queue. A participant whose queue overflows is dropped
// from the room, so a larger queue tolerates slower peers.
func QueueSizeOption(size int) Option {
	return func(o *options) {
		o.queueSize = size
	}
}

// IdleTimeoutOption returns an Option that sets the read/write idle
// timeout. Zero, the default, leaves connections without deadlines.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// SessionLoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func SessionLoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// checkOptions fills in default values for unset session options.
func checkOptions(opts *options) {
	if opts.queueSize <= 0 {
		opts.queueSize = defaultQueueSize
	}

	if opts.idleTimeout < 0 {
		opts.idleTimeout = 0
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}
