package chatroom

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config is the environment-driven service configuration. Every field
// is read from a CHATROOM_ prefixed variable and falls back to the
// default in its tag.
type Config struct {
	ListenAddr      string        `envconfig:"LISTEN_ADDR" default:":9000"`
	GatewayAddr     string        `envconfig:"GATEWAY_ADDR" default:":9080"`
	MaxParticipants int           `envconfig:"MAX_PARTICIPANTS" default:"100"`
	QueueSize       int           `envconfig:"QUEUE_SIZE" default:"256"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	Transcript      bool          `envconfig:"TRANSCRIPT" default:"false"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("chatroom", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return cfg, nil
}
