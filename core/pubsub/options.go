package pubsub

import (
	"log/slog"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/metrics"
	"github.com/dmitrymomot/msgbus/core/transport"
)

// Option configures a publisher or subscriber.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	factory transport.SocketFactory
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records traffic counters on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithSocketFactory replaces the ZeroMQ sockets, e.g. with a
// transporttest.Broker in tests.
func WithSocketFactory(f transport.SocketFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

func newOptions(component string, opts []Option) options {
	o := options{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(logger.Component(component))
	return o
}

func (o options) transport(cfg Config) []transport.Option {
	topts := []transport.Option{
		transport.WithLogger(o.logger),
		transport.WithMetrics(o.metrics),
	}
	if cfg.Context != nil {
		topts = append(topts, transport.WithContext(cfg.Context))
	}
	if o.factory != nil {
		topts = append(topts, transport.WithSocketFactory(o.factory))
	}
	return topts
}
