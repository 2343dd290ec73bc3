package transport

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

var (
	// ErrTransport is matched by every *Error.
	ErrTransport = errors.New("transport: failure")

	// ErrNotConnected is returned when sending or receiving before Setup.
	ErrNotConnected = errors.New("transport: not connected, call Setup first")

	// ErrTypeMismatch is returned when a raw payload is not a byte string.
	ErrTypeMismatch = errors.New("transport: payload must be a byte string")

	// ErrContextKind is returned when a shared Context of the wrong
	// concurrency kind is handed to an adapter.
	ErrContextKind = errors.New("transport: context kind mismatch")

	// ErrInvalidMode is returned for a mode other than connect or bind.
	ErrInvalidMode = errors.New("transport: invalid mode")

	// ErrInvalidRole is returned by a SocketFactory for an unknown role.
	ErrInvalidRole = errors.New("transport: invalid socket role")
)

const addrInUseHint = "another socket is probably bound to this endpoint already; " +
	"bind only the long-lived side and connect the others"

// Error is a setup or I/O failure of one adapter. It is fatal to that adapter
// instance and is never retried internally.
type Error struct {
	Op       string
	Endpoint string
	Hint     string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("transport: ")
	b.WriteString(e.Op)
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " %s", e.Endpoint)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", e.Hint)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrTransport }

// hintFor returns a hint when err looks like two listeners on one address.
func hintFor(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, syscall.EADDRINUSE) || strings.Contains(strings.ToLower(err.Error()), "address already in use") {
		return addrInUseHint
	}
	return ""
}
