// Package metrics exposes Prometheus counters for bus traffic.
//
// A nil *Collector is valid and records nothing, so components can be built
// without metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "msgbus"
	labelEnd  = "endpoint"
)

// Collector groups the bus counters. All are labelled by endpoint.
type Collector struct {
	framesSent      *prometheus.CounterVec
	framesReceived  *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. A nil reg registers
// nothing, which is handy in tests.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames handed to the transport.",
		}, []string{labelEnd}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames read from the transport.",
		}, []string{labelEnd}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound frames discarded because the receive buffer was full.",
		}, []string{labelEnd}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Frames that could not be decoded into a known message.",
		}, []string{labelEnd}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Send calls that returned an error to the caller.",
		}, []string{labelEnd}),
	}

	if reg != nil {
		for _, col := range c.collectors() {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer) *Collector {
	c, err := New(reg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.framesSent,
		c.framesReceived,
		c.framesDropped,
		c.decodeFailures,
		c.publishFailures,
	}
}

// FrameSent counts one frame written to endpoint.
func (c *Collector) FrameSent(endpoint string) {
	if c == nil {
		return
	}
	c.framesSent.WithLabelValues(endpoint).Inc()
}

// FrameReceived counts one frame read from endpoint.
func (c *Collector) FrameReceived(endpoint string) {
	if c == nil {
		return
	}
	c.framesReceived.WithLabelValues(endpoint).Inc()
}

// FrameDropped counts one inbound frame discarded on a full buffer.
func (c *Collector) FrameDropped(endpoint string) {
	if c == nil {
		return
	}
	c.framesDropped.WithLabelValues(endpoint).Inc()
}

// DecodeFailed counts one frame that decoded into nothing.
func (c *Collector) DecodeFailed(endpoint string) {
	if c == nil {
		return
	}
	c.decodeFailures.WithLabelValues(endpoint).Inc()
}

// PublishFailed counts one failed send call.
func (c *Collector) PublishFailed(endpoint string) {
	if c == nil {
		return
	}
	c.publishFailures.WithLabelValues(endpoint).Inc()
}
