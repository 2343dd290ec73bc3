package pubsub

import (
	"fmt"

	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/transport"
)

// Backend names a transport implementation.
type Backend string

const (
	// BackendZMQ is the ZeroMQ PUB/SUB transport.
	BackendZMQ Backend = "zmq"
	// BackendMQTT is recognised but not implemented.
	BackendMQTT Backend = "mqtt"
)

// DefaultEndpoint is used when Config.Endpoint is empty.
const DefaultEndpoint = "tcp://localhost:5555"

// Config is the declarative description of one publisher or subscriber.
// It can be filled from the environment or a YAML file with core/config.
type Config struct {
	Backend  Backend `env:"MSGBUS_BACKEND" envDefault:"zmq" yaml:"backend"`
	Endpoint string  `env:"MSGBUS_ENDPOINT" envDefault:"tcp://localhost:5555" yaml:"endpoint"`

	// Mode defaults to connect for publishers and bind for subscribers.
	Mode transport.Mode `env:"MSGBUS_MODE" yaml:"mode"`

	// Topic prefixes every published frame as "<topic> <json>".
	Topic string `env:"MSGBUS_TOPIC" yaml:"topic"`

	// Topics are subscriber prefix filters. Empty subscribes to everything.
	// Include the trailing space to match a publisher topic exactly.
	Topics []string `env:"MSGBUS_TOPICS" envSeparator:"," yaml:"topics"`

	ExpectedKind message.Kind `env:"MSGBUS_EXPECTED_KIND" envDefault:"auto" yaml:"expected_kind"`
	BufferLimit  int          `env:"MSGBUS_BUFFER_LIMIT" yaml:"buffer_limit"`

	// SenderID identifies the producing process in the CLIs.
	SenderID string `env:"MSGBUS_SENDER_ID" yaml:"sender_id"`

	// Context is an optional shared transport context. Its kind must match
	// the variant being built.
	Context *transport.Context `yaml:"-"`
}

// DefaultConfig returns the zero-configuration defaults.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendZMQ,
		Endpoint:     DefaultEndpoint,
		ExpectedKind: message.KindAuto,
	}
}

// check rejects the config before any socket exists.
func (c Config) check(kind transport.ContextKind) error {
	switch c.Backend {
	case "", BackendZMQ:
	case BackendMQTT:
		return fmt.Errorf("%w: %q is not implemented yet", ErrUnsupportedBackend, c.Backend)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Backend)
	}

	if c.Context != nil && c.Context.Kind() != kind {
		return fmt.Errorf("%w: %s variant cannot use a %s context: %w",
			ErrConfigType, kind, c.Context.Kind(), transport.ErrContextKind)
	}

	if _, err := message.ParseKind(string(c.ExpectedKind)); err != nil {
		return err
	}
	return nil
}

func (c Config) endpoint(fallback transport.Mode) transport.Endpoint {
	ep := transport.Endpoint{
		Address:     c.Endpoint,
		Mode:        c.Mode,
		Topics:      c.Topics,
		BufferLimit: c.BufferLimit,
	}
	if ep.Address == "" {
		ep.Address = DefaultEndpoint
	}
	if ep.Mode == "" {
		ep.Mode = fallback
	}
	return ep
}
