package pubsub

import (
	"github.com/dmitrymomot/msgbus/core/transport"
)

// NewPublisher builds a blocking publisher. The config is checked before
// any socket exists; nothing is opened until Use or Connect.
func NewPublisher(cfg Config, opts ...Option) (*Publisher, error) {
	if err := cfg.check(transport.KindSync); err != nil {
		return nil, err
	}
	o := newOptions("publisher", opts)
	t, err := transport.NewSyncAdapter(transport.RolePublish, o.transport(cfg)...)
	if err != nil {
		return nil, err
	}
	return &Publisher{framer: newFramer(cfg, o), t: t}, nil
}

// NewAsyncPublisher builds a context-aware publisher.
func NewAsyncPublisher(cfg Config, opts ...Option) (*AsyncPublisher, error) {
	if err := cfg.check(transport.KindAsync); err != nil {
		return nil, err
	}
	o := newOptions("publisher", opts)
	t, err := transport.NewAsyncAdapter(transport.RolePublish, o.transport(cfg)...)
	if err != nil {
		return nil, err
	}
	return &AsyncPublisher{framer: newFramer(cfg, o), t: t}, nil
}

// NewSubscriber builds a blocking subscriber.
func NewSubscriber(cfg Config, opts ...Option) (*Subscriber, error) {
	if err := cfg.check(transport.KindSync); err != nil {
		return nil, err
	}
	o := newOptions("subscriber", opts)
	t, err := transport.NewSyncAdapter(transport.RoleSubscribe, o.transport(cfg)...)
	if err != nil {
		return nil, err
	}
	return &Subscriber{unframer: newUnframer(cfg, o), t: t}, nil
}

// NewAsyncSubscriber builds a context-aware subscriber.
func NewAsyncSubscriber(cfg Config, opts ...Option) (*AsyncSubscriber, error) {
	if err := cfg.check(transport.KindAsync); err != nil {
		return nil, err
	}
	o := newOptions("subscriber", opts)
	t, err := transport.NewAsyncAdapter(transport.RoleSubscribe, o.transport(cfg)...)
	if err != nil {
		return nil, err
	}
	return &AsyncSubscriber{unframer: newUnframer(cfg, o), t: t}, nil
}
