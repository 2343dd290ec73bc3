package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/pubsub"
	"github.com/dmitrymomot/msgbus/core/transport"
	"github.com/dmitrymomot/msgbus/core/transport/transporttest"
)

const defaultWait = 2 * time.Second

func heartbeat(sender string) *message.SensorMessage {
	return message.NewSensorMessage(sender, "", message.DataTypeHeartBeat,
		&message.HeartBeatPayload{Status: "running", StatusCode: 200})
}

func subConfig(addr string, topics ...string) pubsub.Config {
	return pubsub.Config{Endpoint: addr, Mode: transport.ModeBind, Topics: topics}
}

func pubConfig(addr, topic string) pubsub.Config {
	return pubsub.Config{Endpoint: addr, Mode: transport.ModeConnect, Topic: topic}
}

func connectedSubscriber(t *testing.T, b *transporttest.Broker, cfg pubsub.Config, opts ...pubsub.Option) *pubsub.Subscriber {
	t.Helper()
	opts = append(opts, pubsub.WithSocketFactory(b.Factory()))
	sub, err := pubsub.NewSubscriber(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, sub.Connect())
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func connectedPublisher(t *testing.T, b *transporttest.Broker, cfg pubsub.Config, opts ...pubsub.Option) *pubsub.Publisher {
	t.Helper()
	opts = append(opts, pubsub.WithSocketFactory(b.Factory()))
	pub, err := pubsub.NewPublisher(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, pub.Connect())
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

func timeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
