package pubsub

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/metrics"
	"github.com/dmitrymomot/msgbus/core/transport"
)

// framer holds what both publisher variants do before a frame hits the
// transport: sequence numbering, validation, encoding and topic prefixing.
type framer struct {
	endpoint transport.Endpoint
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Collector
	seq      atomic.Uint64
}

func newFramer(cfg Config, o options) *framer {
	ep := cfg.endpoint(transport.ModeConnect)
	return &framer{
		endpoint: ep,
		topic:    cfg.Topic,
		logger:   o.logger.With(logger.Endpoint(ep.Address), logger.Topic(cfg.Topic)),
		metrics:  o.metrics,
	}
}

// encode stamps a zero timestamp with the current time and assigns the next
// sequence number to a sensor message whose SequenceNo is zero. It then
// validates and encodes msg and prefixes the topic.
func (f *framer) encode(msg message.Message) ([]byte, error) {
	if !present(msg) {
		return nil, message.ErrNilMessage
	}
	stamp(msg)
	if sm, ok := msg.(*message.SensorMessage); ok && sm.SequenceNo == 0 {
		sm.SequenceNo = f.seq.Add(1) - 1
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	body, err := message.Encode(msg)
	if err != nil {
		return nil, err
	}
	return f.frame(body), nil
}

func stamp(msg message.Message) {
	var ts *message.Timestamp
	switch m := msg.(type) {
	case *message.SensorMessage:
		ts = &m.Timestamp
	case *message.DisplayMessage:
		ts = &m.Timestamp
	case *message.MotorMessage:
		ts = &m.Timestamp
	default:
		return
	}
	if ts.IsZero() {
		*ts = message.Now()
	}
}

func (f *framer) frame(body []byte) []byte {
	if f.topic == "" {
		return body
	}
	out := make([]byte, 0, len(f.topic)+1+len(body))
	out = append(out, f.topic...)
	out = append(out, ' ')
	return append(out, body...)
}

// fail logs a publish error and hands it back unchanged.
func (f *framer) fail(msg message.Message, err error) error {
	attrs := []any{logger.Error(err)}
	if present(msg) {
		attrs = append(attrs, logger.Kind(msg.Kind().String()), logger.SenderID(msg.Sender()))
	}
	f.logger.Error("publish failed", attrs...)
	f.metrics.PublishFailed(f.endpoint.Address)
	return err
}

func (f *framer) sent(msg message.Message, size int) {
	if !f.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{logger.Kind(msg.Kind().String()), logger.FrameSize(size)}
	if sm, ok := msg.(*message.SensorMessage); ok {
		attrs = append(attrs, logger.SequenceNo(sm.SequenceNo), logger.DataType(sm.DataType.String()))
	}
	f.logger.Debug("message published", attrs...)
}

// present reports whether msg is a non-nil pointer to a known message.
func present(msg message.Message) bool {
	switch m := msg.(type) {
	case *message.SensorMessage:
		return m != nil
	case *message.DisplayMessage:
		return m != nil
	case *message.MotorMessage:
		return m != nil
	default:
		return false
	}
}

// Publisher sends envelopes from blocking goroutines. Create it with
// NewPublisher and prefer Use over Connect and Close.
type Publisher struct {
	*framer
	t *transport.SyncAdapter
}

// Connect establishes the socket.
//
// Deprecated: use Use, which always closes the publisher.
func (p *Publisher) Connect() error {
	p.logger.Warn("direct Connect is deprecated, use Publisher.Use")
	return p.t.Setup(p.endpoint)
}

// Use connects, runs fn and closes the publisher on every exit path,
// including when fn fails or panics.
//
//	err := pub.Use(func(pub *pubsub.Publisher) error {
//		return pub.Send(msg)
//	})
func (p *Publisher) Use(fn func(*Publisher) error) (err error) {
	defer func() {
		if cerr := p.Close(); err == nil {
			err = cerr
		}
	}()
	if err := p.t.Setup(p.endpoint); err != nil {
		return err
	}
	return fn(p)
}

// Send numbers, validates, encodes and sends msg. Failures are logged and
// returned; nothing is retried.
func (p *Publisher) Send(msg message.Message) error {
	frame, err := p.encode(msg)
	if err != nil {
		return p.fail(msg, err)
	}
	if err := p.t.Send(frame); err != nil {
		return p.fail(msg, err)
	}
	p.sent(msg, len(frame))
	return nil
}

// SendRaw sends data without validation. Meant for debugging and tests.
// data must be a string, []byte or json.RawMessage.
func (p *Publisher) SendRaw(data any) error {
	body, err := transport.Bytes(data)
	if err != nil {
		return p.fail(nil, err)
	}
	if err := p.t.Send(p.frame(body)); err != nil {
		return p.fail(nil, err)
	}
	return nil
}

// SequenceNo is the number the next unnumbered sensor message will get.
func (p *Publisher) SequenceNo() uint64 { return p.seq.Load() }

// Connected reports whether the socket is live.
func (p *Publisher) Connected() bool { return p.t.Connected() }

// Close releases the socket. Safe to call more than once.
func (p *Publisher) Close() error { return p.t.Close() }

// AsyncPublisher is the context-aware variant of Publisher.
type AsyncPublisher struct {
	*framer
	t *transport.AsyncAdapter
}

// Connect establishes the socket.
//
// Deprecated: use Use, which always closes the publisher.
func (p *AsyncPublisher) Connect(ctx context.Context) error {
	p.logger.Warn("direct Connect is deprecated, use AsyncPublisher.Use")
	return p.t.Setup(ctx, p.endpoint)
}

// Use connects, runs fn and closes the publisher on every exit path.
func (p *AsyncPublisher) Use(ctx context.Context, fn func(context.Context, *AsyncPublisher) error) (err error) {
	defer func() {
		if cerr := p.Close(); err == nil {
			err = cerr
		}
	}()
	if err := p.t.Setup(ctx, p.endpoint); err != nil {
		return err
	}
	return fn(ctx, p)
}

// Send numbers, validates, encodes and sends msg unless ctx is done.
func (p *AsyncPublisher) Send(ctx context.Context, msg message.Message) error {
	frame, err := p.encode(msg)
	if err != nil {
		return p.fail(msg, err)
	}
	if err := p.t.Send(ctx, frame); err != nil {
		return p.fail(msg, err)
	}
	p.sent(msg, len(frame))
	return nil
}

// SendRaw sends data without validation. Meant for debugging and tests.
func (p *AsyncPublisher) SendRaw(ctx context.Context, data any) error {
	body, err := transport.Bytes(data)
	if err != nil {
		return p.fail(nil, err)
	}
	if err := p.t.Send(ctx, p.frame(body)); err != nil {
		return p.fail(nil, err)
	}
	return nil
}

// SequenceNo is the number the next unnumbered sensor message will get.
func (p *AsyncPublisher) SequenceNo() uint64 { return p.seq.Load() }

// Connected reports whether the socket is live.
func (p *AsyncPublisher) Connected() bool { return p.t.Connected() }

// Close releases the socket. Safe to call more than once.
func (p *AsyncPublisher) Close() error { return p.t.Close() }
