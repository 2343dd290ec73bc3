package transport

import (
	"context"
	"fmt"
)

// ContextKind is the concurrency model a Context serves.
type ContextKind uint8

const (
	// KindSync backs adapters driven from blocking goroutines.
	KindSync ContextKind = iota + 1
	// KindAsync backs adapters whose receive and send honour a context.Context.
	KindAsync
)

func (k ContextKind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindAsync:
		return "async"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Context is a multiplexing context that may back many sockets of the same
// concurrency kind within one process. Terminating it tears down every
// socket created on it.
//
// Only the creator holds the terminate function returned by NewContext.
// Adapters handed a Context borrow it and never terminate it.
type Context struct {
	kind ContextKind
	ctx  context.Context
}

// NewContext creates a Context and the function that terminates it.
//
//	shared, terminate := transport.NewContext(transport.KindSync)
//	defer terminate()
func NewContext(kind ContextKind) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{kind: kind, ctx: ctx}, cancel
}

// Kind reports the concurrency kind.
func (c *Context) Kind() ContextKind { return c.kind }

// Err is non-nil once the context has been terminated.
func (c *Context) Err() error { return c.ctx.Err() }

// contextRef is either owned or borrowed. Only owned exposes terminate.
type contextRef interface {
	context() *Context
}

type borrowed struct {
	c *Context
}

func (b borrowed) context() *Context { return b.c }

type owned struct {
	c         *Context
	terminate context.CancelFunc
}

func (o owned) context() *Context { return o.c }
