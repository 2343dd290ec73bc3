package pubsub

import "errors"

var (
	// ErrUnsupportedBackend is returned for any backend other than zmq.
	ErrUnsupportedBackend = errors.New("pubsub: unsupported backend")

	// ErrConfigType is returned when Config.Context has the wrong
	// concurrency kind for the requested publisher or subscriber.
	ErrConfigType = errors.New("pubsub: shared context kind does not match")
)
