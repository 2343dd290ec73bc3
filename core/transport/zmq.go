package transport

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// ZMQSocketFactory builds ZeroMQ PUB/SUB sockets. opts are passed to every
// socket, e.g. zmq4.WithDialerRetry.
func ZMQSocketFactory(opts ...zmq4.Option) SocketFactory {
	return func(ctx context.Context, role Role) (Socket, error) {
		switch role {
		case RolePublish:
			return &zmqSocket{s: zmq4.NewPub(ctx, opts...)}, nil
		case RoleSubscribe:
			return &zmqSocket{s: zmq4.NewSub(ctx, opts...)}, nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
		}
	}
}

type zmqSocket struct {
	s zmq4.Socket
}

func (z *zmqSocket) Bind(endpoint string) error    { return z.s.Listen(endpoint) }
func (z *zmqSocket) Connect(endpoint string) error { return z.s.Dial(endpoint) }

func (z *zmqSocket) SetOption(name string, value any) error {
	switch name {
	case OptionLinger:
		// zmq4 drops queued frames on Close, which is a zero linger.
		return nil
	case OptionHWM:
		return z.s.SetOption(zmq4.OptionHWM, value)
	default:
		return z.s.SetOption(name, value)
	}
}

func (z *zmqSocket) Subscribe(topic string) error {
	return z.s.SetOption(zmq4.OptionSubscribe, topic)
}

func (z *zmqSocket) Send(frame []byte) error {
	return z.s.Send(zmq4.NewMsg(frame))
}

// Recv returns a single-frame message as is. Multipart messages from foreign
// publishers are joined with a space, which turns a [topic, body] pair into
// the "<topic> <body>" wire form.
func (z *zmqSocket) Recv() ([]byte, error) {
	msg, err := z.s.Recv()
	if err != nil {
		return nil, err
	}
	switch len(msg.Frames) {
	case 0:
		return []byte{}, nil
	case 1:
		return msg.Frames[0], nil
	default:
		return bytes.Join(msg.Frames, []byte(" ")), nil
	}
}

func (z *zmqSocket) Close() error { return z.s.Close() }
