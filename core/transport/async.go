package transport

import (
	"context"
	"io"

	"github.com/dmitrymomot/msgbus/core/logger"
)

// AsyncAdapter drives one socket for callers that need cancellation. A pump
// goroutine moves inbound frames into a queue bounded by the buffer limit;
// frames arriving while the queue is full are dropped.
type AsyncAdapter struct {
	*adapter
}

// NewAsyncAdapter creates an adapter for role. A shared Context, if given,
// must be of KindAsync.
func NewAsyncAdapter(role Role, opts ...Option) (*AsyncAdapter, error) {
	a, err := newAdapter(role, KindAsync, opts)
	if err != nil {
		return nil, err
	}
	return &AsyncAdapter{adapter: a}, nil
}

// Setup establishes the socket. Calling it on a live adapter logs and
// returns nil.
func (s *AsyncAdapter) Setup(ctx context.Context, ep Endpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	inbox := 0
	if s.role == RoleSubscribe {
		inbox = ep.BufferLimit
		if inbox <= 0 {
			inbox = DefaultBufferLimit
		}
	}
	ls, err := s.setup(ep, inbox)
	if err != nil || ls == nil {
		return err
	}
	if ls.inbox != nil {
		go s.pump(ls)
	}
	return nil
}

func (s *AsyncAdapter) pump(ls *liveSocket) {
	defer close(ls.inbox)
	for {
		frame, err := ls.sock.Recv()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Debug("receive ended", logger.Error(err))
			}
			return
		}
		s.metrics.FrameReceived(ls.endpoint)
		select {
		case ls.inbox <- frame:
		default:
			s.metrics.FrameDropped(ls.endpoint)
		}
	}
}

// Send writes one frame unless ctx is already done.
func (s *AsyncAdapter) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(frame)
}

// Receive waits for one frame or for ctx. It returns io.EOF once the adapter
// is closed or the socket breaks.
func (s *AsyncAdapter) Receive(ctx context.Context) ([]byte, error) {
	ls, err := s.receiver()
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-ls.inbox:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	}
}

// Subscribe adds a topic filter on a live subscribe socket.
func (s *AsyncAdapter) Subscribe(topic string) error {
	return s.subscribe(topic)
}

// Close releases the socket and, if this adapter created its context,
// terminates it. Safe to call more than once and from another goroutine.
func (s *AsyncAdapter) Close() error {
	return s.close()
}
