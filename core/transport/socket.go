package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// Option names understood by Socket.SetOption.
const (
	// OptionLinger is the time pending frames may linger after Close. Adapters
	// always set it to zero before closing.
	OptionLinger = "LINGER"

	// OptionHWM caps queued frames per peer. Frames over the cap are dropped
	// silently.
	OptionHWM = "HWM"
)

// Role selects the socket pattern.
type Role uint8

const (
	RolePublish Role = iota + 1
	RoleSubscribe
)

func (r Role) String() string {
	switch r {
	case RolePublish:
		return "publish"
	case RoleSubscribe:
		return "subscribe"
	default:
		return fmt.Sprintf("role(%d)", r)
	}
}

// Mode selects which side of the rendezvous a socket takes.
type Mode string

const (
	// ModeConnect is for transient or secondary peers.
	ModeConnect Mode = "connect"
	// ModeBind is for the long-lived rendezvous point; start it first.
	ModeBind Mode = "bind"
)

// UnmarshalText accepts "connect" or "bind".
func (m *Mode) UnmarshalText(text []byte) error {
	switch v := Mode(text); v {
	case "", ModeConnect, ModeBind:
		*m = v
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, string(text))
	}
}

// Socket is the wire-level collaborator the adapters drive. Implementations
// are not safe for concurrent use by several callers, except that Close may
// be called while Recv is blocked and must unblock it.
type Socket interface {
	Bind(endpoint string) error
	Connect(endpoint string) error
	SetOption(name string, value any) error
	// Subscribe adds a prefix filter. An empty topic matches everything.
	Subscribe(topic string) error
	Send(frame []byte) error
	// Recv blocks until a frame arrives or the socket is closed.
	Recv() ([]byte, error)
	Close() error
}

// SocketFactory creates a socket whose lifetime is bound to ctx.
type SocketFactory func(ctx context.Context, role Role) (Socket, error)

// Bytes converts a raw payload into a frame. Only byte strings are accepted.
func Bytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		if b == nil {
			return nil, fmt.Errorf("%w: got nil []byte", ErrTypeMismatch)
		}
		return b, nil
	case json.RawMessage:
		return []byte(b), nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrTypeMismatch, v)
	}
}
