package logger

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit nil checks.

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ============================================================================
// Transport
// ============================================================================

// Endpoint creates an attribute for a transport address.
func Endpoint(addr string) slog.Attr {
	return slog.String("endpoint", addr)
}

// Mode creates an attribute for the connect/bind mode of a socket.
func Mode(mode string) slog.Attr {
	return slog.String("mode", mode)
}

// Topic creates an attribute for a topic prefix. Empty topics are logged
// explicitly since they mean "everything".
func Topic(topic string) slog.Attr {
	return slog.String("topic", topic)
}

// Topics creates an attribute listing topic filters.
func Topics(topics []string) slog.Attr {
	return slog.String("topics", strings.Join(quoteAll(topics), ","))
}

// FrameSize creates an attribute for the byte length of a frame.
func FrameSize(n int) slog.Attr {
	return slog.Int("frame_size", n)
}

// Role creates an attribute for the socket role (publish/subscribe).
func Role(role string) slog.Attr {
	return slog.String("role", role)
}

// ============================================================================
// Messages
// ============================================================================

// Kind creates an attribute for a message kind.
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// SenderID creates an attribute for the sender of a message.
func SenderID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("sender_id", id)
}

// SequenceNo creates an attribute for a publisher sequence number.
func SequenceNo(n uint64) slog.Attr {
	return slog.Uint64("sequence_no", n)
}

// DataType creates an attribute for a payload data type.
func DataType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("data_type", t)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}
