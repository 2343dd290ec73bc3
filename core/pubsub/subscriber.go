package pubsub

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/metrics"
	"github.com/dmitrymomot/msgbus/core/transport"
)

// unframer turns received frames into messages for both subscriber variants.
type unframer struct {
	endpoint transport.Endpoint
	expected message.Kind
	logger   *slog.Logger
	metrics  *metrics.Collector
}

func newUnframer(cfg Config, o options) *unframer {
	ep := cfg.endpoint(transport.ModeBind)
	// already checked by the factory
	expected, _ := message.ParseKind(string(cfg.ExpectedKind))
	return &unframer{
		endpoint: ep,
		expected: expected,
		logger:   o.logger.With(logger.Endpoint(ep.Address)),
		metrics:  o.metrics,
	}
}

// decode returns false for frames that are logged and skipped.
func (u *unframer) decode(frame []byte) (message.Message, bool) {
	msg, err := message.Decode(StripTopic(frame), u.expected)
	if err != nil {
		u.logger.Warn("dropping undecodable frame",
			logger.FrameSize(len(frame)),
			logger.Kind(u.expected.String()),
			logger.Error(err))
		u.metrics.DecodeFailed(u.endpoint.Address)
		return nil, false
	}
	return msg, true
}

// StripTopic removes a leading "<topic> " from frame. A frame that starts
// with '{' is returned as is. Otherwise everything up to the first " {" is
// taken to be the topic; a frame without " {" is returned unchanged.
//
// A topic that itself contains " {" is cut short, so topics should not.
func StripTopic(frame []byte) []byte {
	if len(frame) == 0 || frame[0] == '{' {
		return frame
	}
	if i := bytes.Index(frame, []byte(" {")); i >= 0 {
		return frame[i+1:]
	}
	return frame
}

// Subscriber yields decoded envelopes from a blocking goroutine. Undecodable
// frames are logged and skipped; the stream ends when the subscriber is
// closed.
type Subscriber struct {
	*unframer
	t *transport.SyncAdapter
}

// Connect establishes the socket and subscribes to the configured topics.
func (s *Subscriber) Connect() error {
	return s.t.Setup(s.endpoint)
}

// Use connects, runs fn and closes the subscriber on every exit path.
func (s *Subscriber) Use(fn func(*Subscriber) error) (err error) {
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	if err := s.Connect(); err != nil {
		return err
	}
	return fn(s)
}

// Subscribe adds a topic filter on a connected subscriber.
func (s *Subscriber) Subscribe(topic string) error {
	return s.t.Subscribe(topic)
}

// Next blocks until the next decodable envelope. It returns io.EOF after
// Close and transport.ErrNotConnected before Connect.
func (s *Subscriber) Next() (message.Message, error) {
	for {
		frame, err := s.t.Receive()
		if err != nil {
			return nil, err
		}
		if msg, ok := s.decode(frame); ok {
			return msg, nil
		}
	}
}

// All ranges over envelopes until the subscriber is closed. It connects
// first unless already connected or closed; a closed subscriber yields
// nothing until Connect is called again. Errors other than end of stream
// are logged.
//
//	for msg := range sub.All() {
//		...
//	}
func (s *Subscriber) All() iter.Seq[message.Message] {
	return func(yield func(message.Message) bool) {
		if s.t.Closed() {
			return
		}
		if !s.t.Connected() {
			if err := s.Connect(); err != nil {
				s.logger.Error("subscriber connect failed", logger.Error(err))
				return
			}
		}
		for {
			msg, err := s.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.logger.Error("subscription ended", logger.Error(err))
				}
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Connected reports whether the socket is live.
func (s *Subscriber) Connected() bool { return s.t.Connected() }

// Close ends the stream and releases the socket. It may be called from
// another goroutine to unblock Next.
func (s *Subscriber) Close() error { return s.t.Close() }

// AsyncSubscriber is the context-aware variant of Subscriber. Inbound frames
// are buffered up to Config.BufferLimit; frames beyond that are dropped.
type AsyncSubscriber struct {
	*unframer
	t *transport.AsyncAdapter
}

// Connect establishes the socket and subscribes to the configured topics.
func (s *AsyncSubscriber) Connect(ctx context.Context) error {
	return s.t.Setup(ctx, s.endpoint)
}

// Use connects, runs fn and closes the subscriber on every exit path.
func (s *AsyncSubscriber) Use(ctx context.Context, fn func(context.Context, *AsyncSubscriber) error) (err error) {
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

// Subscribe adds a topic filter on a connected subscriber.
func (s *AsyncSubscriber) Subscribe(topic string) error {
	return s.t.Subscribe(topic)
}

// Next waits for the next decodable envelope or for ctx.
func (s *AsyncSubscriber) Next(ctx context.Context) (message.Message, error) {
	for {
		frame, err := s.t.Receive(ctx)
		if err != nil {
			return nil, err
		}
		if msg, ok := s.decode(frame); ok {
			return msg, nil
		}
	}
}

// Messages connects if needed and streams envelopes on the returned channel
// until ctx is done or the subscriber is closed. The channel is then closed.
// On a closed subscriber the channel is closed right away.
func (s *AsyncSubscriber) Messages(ctx context.Context) <-chan message.Message {
	out := make(chan message.Message)
	go func() {
		defer close(out)
		if s.t.Closed() {
			return
		}
		if !s.t.Connected() {
			if err := s.Connect(ctx); err != nil {
				s.logger.Error("subscriber connect failed", logger.Error(err))
				return
			}
		}
		for {
			msg, err := s.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					s.logger.Error("subscription ended", logger.Error(err))
				}
				return
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Connected reports whether the socket is live.
func (s *AsyncSubscriber) Connected() bool { return s.t.Connected() }

// Close ends the stream and releases the socket.
func (s *AsyncSubscriber) Close() error { return s.t.Close() }
