package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/metrics"
)

func TestCollector_Counts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)

	c.FrameSent("inproc://a")
	c.FrameSent("inproc://a")
	c.FrameReceived("inproc://a")
	c.FrameDropped("inproc://b")
	c.DecodeFailed("inproc://b")
	c.PublishFailed("inproc://a")

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			byName[mf.GetName()] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, byName["msgbus_frames_sent_total"])
	assert.Equal(t, 1.0, byName["msgbus_frames_received_total"])
	assert.Equal(t, 1.0, byName["msgbus_frames_dropped_total"])
	assert.Equal(t, 1.0, byName["msgbus_decode_failures_total"])
	assert.Equal(t, 1.0, byName["msgbus_publish_failures_total"])
}

func TestCollector_DoubleRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	assert.Error(t, err)
}

func TestCollector_Nil(t *testing.T) {
	t.Parallel()

	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.FrameSent("x")
		c.FrameReceived("x")
		c.FrameDropped("x")
		c.DecodeFailed("x")
		c.PublishFailed("x")
	})
}
