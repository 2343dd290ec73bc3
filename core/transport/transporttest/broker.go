// Package transporttest provides an in-process PUB/SUB broker that satisfies
// transport.SocketFactory, so adapters and publishers can be tested without
// opening network sockets.
package transporttest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/msgbus/core/transport"
)

// DefaultHWM is the per-subscriber queue size when no HWM option is set.
const DefaultHWM = 1000

// ErrAddrInUse mirrors the operating system error for a second bind.
var ErrAddrInUse = errors.New("bind: address already in use")

// ErrClosed is returned by operations on a closed socket.
var ErrClosed = errors.New("transporttest: socket closed")

// Broker routes frames between sockets attached to the same endpoint string.
// Delivery follows PUB/SUB rules: prefix-filtered, fire and forget, and a
// subscriber whose queue is full loses the frame.
type Broker struct {
	mu      sync.Mutex
	bound   map[string]*Socket
	members map[string]map[*Socket]struct{}

	published atomic.Int64
	dropped   atomic.Int64
	created   atomic.Int64
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{
		bound:   make(map[string]*Socket),
		members: make(map[string]map[*Socket]struct{}),
	}
}

// Factory returns a SocketFactory producing sockets on this broker.
func (b *Broker) Factory() transport.SocketFactory {
	return func(ctx context.Context, role transport.Role) (transport.Socket, error) {
		if role != transport.RolePublish && role != transport.RoleSubscribe {
			return nil, fmt.Errorf("%w: %s", transport.ErrInvalidRole, role)
		}
		b.created.Add(1)
		return &Socket{
			broker: b,
			role:   role,
			ctx:    ctx,
			hwm:    DefaultHWM,
			done:   make(chan struct{}),
		}, nil
	}
}

// Published reports frames accepted from publishers.
func (b *Broker) Published() int64 { return b.published.Load() }

// Dropped reports frames lost on full subscriber queues.
func (b *Broker) Dropped() int64 { return b.dropped.Load() }

// Created reports sockets made by the factory.
func (b *Broker) Created() int64 { return b.created.Load() }

// Subscribers reports how many live subscribe sockets are attached to
// endpoint.
func (b *Broker) Subscribers(endpoint string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for s := range b.members[endpoint] {
		if s.role == transport.RoleSubscribe {
			n++
		}
	}
	return n
}

func (b *Broker) attach(s *Socket, endpoint string, bind bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bind {
		if _, taken := b.bound[endpoint]; taken {
			return fmt.Errorf("listen %s: %w", endpoint, ErrAddrInUse)
		}
		b.bound[endpoint] = s
	}
	set, ok := b.members[endpoint]
	if !ok {
		set = make(map[*Socket]struct{})
		b.members[endpoint] = set
	}
	set[s] = struct{}{}
	return nil
}

func (b *Broker) detach(s *Socket, endpoints []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ep := range endpoints {
		if b.bound[ep] == s {
			delete(b.bound, ep)
		}
		delete(b.members[ep], s)
		if len(b.members[ep]) == 0 {
			delete(b.members, ep)
		}
	}
}

func (b *Broker) publish(endpoints []string, frame []byte) {
	b.mu.Lock()
	var targets []*Socket
	for _, ep := range endpoints {
		for s := range b.members[ep] {
			if s.role == transport.RoleSubscribe {
				targets = append(targets, s)
			}
		}
	}
	b.mu.Unlock()

	b.published.Add(1)
	for _, s := range targets {
		if !s.matches(frame) {
			continue
		}
		if !s.deliver(bytes.Clone(frame)) {
			b.dropped.Add(1)
		}
	}
}

// Socket is one broker-backed socket.
type Socket struct {
	broker *Broker
	role   transport.Role
	ctx    context.Context

	mu        sync.Mutex
	hwm       int
	queue     chan []byte
	endpoints []string
	topics    [][]byte

	done      chan struct{}
	closeOnce sync.Once
}

var _ transport.Socket = (*Socket)(nil)

func (s *Socket) Bind(endpoint string) error    { return s.attach(endpoint, true) }
func (s *Socket) Connect(endpoint string) error { return s.attach(endpoint, false) }

func (s *Socket) attach(endpoint string, bind bool) error {
	if err := s.alive(); err != nil {
		return err
	}
	if err := s.broker.attach(s, endpoint, bind); err != nil {
		return err
	}
	s.mu.Lock()
	if s.queue == nil {
		s.queue = make(chan []byte, s.hwm)
	}
	s.endpoints = append(s.endpoints, endpoint)
	s.mu.Unlock()
	return nil
}

// SetOption understands transport.OptionHWM and transport.OptionLinger.
// HWM only takes effect before the first Bind or Connect.
func (s *Socket) SetOption(name string, value any) error {
	switch name {
	case transport.OptionLinger:
		return nil
	case transport.OptionHWM:
		n, ok := value.(int)
		if !ok || n <= 0 {
			return fmt.Errorf("transporttest: invalid HWM %v", value)
		}
		s.mu.Lock()
		s.hwm = n
		s.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("transporttest: unknown option %q", name)
	}
}

func (s *Socket) Subscribe(topic string) error {
	if s.role != transport.RoleSubscribe {
		return fmt.Errorf("%w: subscribe on %s socket", transport.ErrInvalidRole, s.role)
	}
	s.mu.Lock()
	s.topics = append(s.topics, []byte(topic))
	s.mu.Unlock()
	return nil
}

func (s *Socket) Send(frame []byte) error {
	if s.role != transport.RolePublish {
		return fmt.Errorf("%w: send on %s socket", transport.ErrInvalidRole, s.role)
	}
	if err := s.alive(); err != nil {
		return err
	}
	s.mu.Lock()
	endpoints := append([]string(nil), s.endpoints...)
	s.mu.Unlock()
	s.broker.publish(endpoints, frame)
	return nil
}

// Recv blocks until a frame is queued, the socket is closed or its context
// ends.
func (s *Socket) Recv() ([]byte, error) {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return nil, errors.New("transporttest: recv before bind or connect")
	}
	select {
	case frame := <-queue:
		return frame, nil
	case <-s.done:
		return nil, ErrClosed
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		endpoints := s.endpoints
		s.mu.Unlock()
		s.broker.detach(s, endpoints)
	})
	return nil
}

// Closed reports whether Close was called.
func (s *Socket) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Socket) alive() error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	return s.ctx.Err()
}

func (s *Socket) matches(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.topics {
		if bytes.HasPrefix(frame, t) {
			return true
		}
	}
	return false
}

func (s *Socket) deliver(frame []byte) bool {
	if s.alive() != nil {
		return true
	}
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	select {
	case queue <- frame:
		return true
	default:
		return false
	}
}

// FailingFactory returns a SocketFactory that always fails with err.
func FailingFactory(err error) transport.SocketFactory {
	return func(context.Context, transport.Role) (transport.Socket, error) {
		return nil, err
	}
}
