package transport

import (
	"io"

	"github.com/dmitrymomot/msgbus/core/logger"
)

// SyncAdapter drives one socket from blocking goroutines. Receive blocks the
// calling goroutine; Close from another goroutine unblocks it.
type SyncAdapter struct {
	*adapter
}

// NewSyncAdapter creates an adapter for role. A shared Context, if given,
// must be of KindSync.
func NewSyncAdapter(role Role, opts ...Option) (*SyncAdapter, error) {
	a, err := newAdapter(role, KindSync, opts)
	if err != nil {
		return nil, err
	}
	return &SyncAdapter{adapter: a}, nil
}

// Setup establishes the socket. Calling it on a live adapter logs and
// returns nil. On failure every partially created resource is released.
func (s *SyncAdapter) Setup(ep Endpoint) error {
	_, err := s.setup(ep, 0)
	return err
}

// Send writes one frame.
func (s *SyncAdapter) Send(frame []byte) error {
	return s.send(frame)
}

// Receive blocks until one frame arrives. It returns io.EOF once the adapter
// is closed or the socket breaks.
func (s *SyncAdapter) Receive() ([]byte, error) {
	ls, err := s.receiver()
	if err != nil {
		return nil, err
	}
	frame, err := ls.sock.Recv()
	if err != nil {
		if !s.closed.Load() {
			s.logger.Debug("receive ended", logger.Error(err))
		}
		return nil, io.EOF
	}
	s.metrics.FrameReceived(ls.endpoint)
	return frame, nil
}

// Subscribe adds a topic filter on a live subscribe socket.
func (s *SyncAdapter) Subscribe(topic string) error {
	return s.subscribe(topic)
}

// Close releases the socket and, if this adapter created its context,
// terminates it. Safe to call more than once and from another goroutine.
func (s *SyncAdapter) Close() error {
	return s.close()
}
