package transport

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/metrics"
)

// DefaultBufferLimit is used for the async inbound queue when no limit is set.
const DefaultBufferLimit = 1000

// Endpoint describes how an adapter attaches to the transport.
type Endpoint struct {
	Address string
	Mode    Mode
	// Topics are subscription prefixes; ignored for publish sockets.
	// Nil or empty subscribes to everything.
	Topics []string
	// BufferLimit caps queued frames before silent drop. Zero keeps the
	// transport default.
	BufferLimit int
}

// Option configures an adapter.
type Option func(*adapter)

// WithContext makes the adapter borrow a shared Context instead of creating
// its own. The Context must match the adapter's concurrency kind.
func WithContext(c *Context) Option {
	return func(a *adapter) {
		a.shared = c
	}
}

// WithSocketFactory replaces the ZeroMQ socket factory.
func WithSocketFactory(f SocketFactory) Option {
	return func(a *adapter) {
		if f != nil {
			a.factory = f
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records frame counters.
func WithMetrics(c *metrics.Collector) Option {
	return func(a *adapter) {
		a.metrics = c
	}
}

// liveSocket is everything created by one successful setup.
type liveSocket struct {
	sock     Socket
	ref      contextRef
	endpoint string
	inbox    chan []byte // async subscribe only
}

// adapter holds the state shared by SyncAdapter and AsyncAdapter.
type adapter struct {
	role    Role
	kind    ContextKind
	shared  *Context
	factory SocketFactory
	logger  *slog.Logger
	metrics *metrics.Collector

	live   atomic.Pointer[liveSocket]
	closed atomic.Bool
}

func newAdapter(role Role, kind ContextKind, opts []Option) (*adapter, error) {
	a := &adapter{
		role:    role,
		kind:    kind,
		factory: ZMQSocketFactory(),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if role != RolePublish && role != RoleSubscribe {
		return nil, &Error{Op: "new", Err: fmt.Errorf("%w: %s", ErrInvalidRole, role)}
	}
	if a.shared != nil && a.shared.Kind() != kind {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: %s adapter cannot use a %s context", ErrContextKind, kind, a.shared.Kind()),
		}
	}
	a.logger = a.logger.With(logger.Role(role.String()))
	return a, nil
}

// acquireContext returns the shared context as borrowed, or lazily creates an
// owned one.
func (a *adapter) acquireContext() contextRef {
	if a.shared != nil {
		return borrowed{c: a.shared}
	}
	c, terminate := NewContext(a.kind)
	return owned{c: c, terminate: terminate}
}

// setup establishes the socket. inbox > 0 allocates a receive queue of that
// size for the async pump. A nil *liveSocket with a nil error means the
// adapter was already set up.
func (a *adapter) setup(ep Endpoint, inbox int) (*liveSocket, error) {
	if cur := a.live.Load(); cur != nil {
		a.logger.Warn("transport already set up, ignoring",
			logger.Endpoint(cur.endpoint))
		return nil, nil
	}
	if ep.Mode != ModeConnect && ep.Mode != ModeBind {
		return nil, &Error{Op: "setup", Endpoint: ep.Address, Err: fmt.Errorf("%w: %q", ErrInvalidMode, ep.Mode)}
	}

	ref := a.acquireContext()
	if err := ref.context().Err(); err != nil {
		return nil, &Error{Op: "setup", Endpoint: ep.Address, Err: fmt.Errorf("context terminated: %w", err)}
	}

	sock, err := a.factory(ref.context().ctx, a.role)
	if err != nil {
		release(ref)
		return nil, &Error{Op: "socket", Endpoint: ep.Address, Err: err}
	}

	if ep.BufferLimit > 0 {
		if err := sock.SetOption(OptionHWM, ep.BufferLimit); err != nil {
			a.logger.Warn("transport rejected buffer limit",
				logger.Endpoint(ep.Address),
				logger.Count("buffer_limit", ep.BufferLimit),
				logger.Error(err))
		}
	}

	if ep.Mode == ModeBind {
		err = sock.Bind(ep.Address)
	} else {
		err = sock.Connect(ep.Address)
	}
	if err != nil {
		abort(sock, ref)
		terr := &Error{Op: string(ep.Mode), Endpoint: ep.Address, Hint: hintFor(err), Err: err}
		a.logger.Error("transport setup failed",
			logger.Endpoint(ep.Address),
			logger.Mode(string(ep.Mode)),
			logger.Error(terr))
		return nil, terr
	}

	if a.role == RoleSubscribe {
		topics := ep.Topics
		if len(topics) == 0 {
			topics = []string{""}
		}
		for _, t := range topics {
			if err := sock.Subscribe(t); err != nil {
				abort(sock, ref)
				return nil, &Error{Op: "subscribe", Endpoint: ep.Address, Err: fmt.Errorf("topic %q: %w", t, err)}
			}
		}
		ep.Topics = topics
	}

	ls := &liveSocket{sock: sock, ref: ref, endpoint: ep.Address}
	if inbox > 0 {
		ls.inbox = make(chan []byte, inbox)
	}
	if !a.live.CompareAndSwap(nil, ls) {
		abort(sock, ref)
		a.logger.Warn("transport already set up, ignoring", logger.Endpoint(ep.Address))
		return nil, nil
	}
	a.closed.Store(false)

	_, isOwner := ref.(owned)
	a.logger.Info("transport ready",
		logger.Endpoint(ep.Address),
		logger.Mode(string(ep.Mode)),
		logger.Topics(ep.Topics),
		slog.Bool("owns_context", isOwner))
	return ls, nil
}

func (a *adapter) send(frame []byte) error {
	ls := a.live.Load()
	if ls == nil {
		return ErrNotConnected
	}
	if err := ls.sock.Send(frame); err != nil {
		return &Error{Op: "send", Endpoint: ls.endpoint, Err: err}
	}
	a.metrics.FrameSent(ls.endpoint)
	return nil
}

// Connected reports whether Setup has completed and Close has not been
// called since.
func (a *adapter) Connected() bool { return a.live.Load() != nil }

// Closed reports whether Close was called after the last successful Setup.
func (a *adapter) Closed() bool { return a.closed.Load() }

// current returns the live socket, io.EOF after Close, or ErrNotConnected.
func (a *adapter) current() (*liveSocket, error) {
	if ls := a.live.Load(); ls != nil {
		return ls, nil
	}
	if a.closed.Load() {
		return nil, io.EOF
	}
	return nil, ErrNotConnected
}

// receiver is current restricted to subscribe sockets.
func (a *adapter) receiver() (*liveSocket, error) {
	if a.role != RoleSubscribe {
		return nil, fmt.Errorf("%w: cannot receive on a %s socket", ErrInvalidRole, a.role)
	}
	return a.current()
}

func (a *adapter) subscribe(topic string) error {
	ls := a.live.Load()
	if ls == nil {
		return ErrNotConnected
	}
	if err := ls.sock.Subscribe(topic); err != nil {
		return &Error{Op: "subscribe", Endpoint: ls.endpoint, Err: err}
	}
	return nil
}

func (a *adapter) close() error {
	a.closed.Store(true)
	ls := a.live.Swap(nil)
	if ls == nil {
		return nil
	}
	_ = ls.sock.SetOption(OptionLinger, 0)
	err := ls.sock.Close()
	release(ls.ref)
	a.logger.Debug("transport closed", logger.Endpoint(ls.endpoint))
	if err != nil {
		return &Error{Op: "close", Endpoint: ls.endpoint, Err: err}
	}
	return nil
}

// abort releases a socket that never became live.
func abort(sock Socket, ref contextRef) {
	_ = sock.SetOption(OptionLinger, 0)
	_ = sock.Close()
	release(ref)
}

// release terminates ref only when the adapter owns it.
func release(ref contextRef) {
	if o, ok := ref.(owned); ok {
		o.terminate()
	}
}
