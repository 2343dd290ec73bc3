package pubsub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/pubsub"
	"github.com/dmitrymomot/msgbus/core/transport"
	"github.com/dmitrymomot/msgbus/core/transport/transporttest"
)

// build runs every factory against cfg and returns their errors.
func build(cfg pubsub.Config, opts ...pubsub.Option) map[string]error {
	errs := map[string]error{}
	_, errs["publisher"] = pubsub.NewPublisher(cfg, opts...)
	_, errs["async publisher"] = pubsub.NewAsyncPublisher(cfg, opts...)
	_, errs["subscriber"] = pubsub.NewSubscriber(cfg, opts...)
	_, errs["async subscriber"] = pubsub.NewAsyncSubscriber(cfg, opts...)
	return errs
}

func TestFactory_UnsupportedBackend(t *testing.T) {
	t.Parallel()

	for _, backend := range []pubsub.Backend{pubsub.BackendMQTT, "kafka"} {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			b := transporttest.NewBroker()
			for name, err := range build(pubsub.Config{Backend: backend}, pubsub.WithSocketFactory(b.Factory())) {
				assert.ErrorIs(t, err, pubsub.ErrUnsupportedBackend, name)
			}
			assert.Zero(t, b.Created())
		})
	}
}

func TestFactory_DefaultBackend(t *testing.T) {
	t.Parallel()

	for name, err := range build(pubsub.Config{}) {
		assert.NoError(t, err, name)
	}
	for name, err := range build(pubsub.DefaultConfig()) {
		assert.NoError(t, err, name)
	}
}

func TestFactory_ContextKindMismatch(t *testing.T) {
	t.Parallel()

	syncCtx, stopSync := transport.NewContext(transport.KindSync)
	defer stopSync()
	asyncCtx, stopAsync := transport.NewContext(transport.KindAsync)
	defer stopAsync()

	b := transporttest.NewBroker()
	opt := pubsub.WithSocketFactory(b.Factory())

	_, err := pubsub.NewPublisher(pubsub.Config{Context: asyncCtx}, opt)
	assert.ErrorIs(t, err, pubsub.ErrConfigType)
	_, err = pubsub.NewSubscriber(pubsub.Config{Context: asyncCtx}, opt)
	assert.ErrorIs(t, err, pubsub.ErrConfigType)

	_, err = pubsub.NewAsyncPublisher(pubsub.Config{Context: syncCtx}, opt)
	assert.ErrorIs(t, err, pubsub.ErrConfigType)
	_, err = pubsub.NewAsyncSubscriber(pubsub.Config{Context: syncCtx}, opt)
	assert.ErrorIs(t, err, pubsub.ErrConfigType)
	assert.ErrorIs(t, err, transport.ErrContextKind)

	assert.Zero(t, b.Created())

	_, err = pubsub.NewPublisher(pubsub.Config{Context: syncCtx}, opt)
	assert.NoError(t, err)
	_, err = pubsub.NewAsyncSubscriber(pubsub.Config{Context: asyncCtx}, opt)
	assert.NoError(t, err)
}

func TestFactory_InvalidExpectedKind(t *testing.T) {
	t.Parallel()

	errs := build(pubsub.Config{ExpectedKind: "camera"})
	for name, err := range errs {
		assert.ErrorIs(t, err, message.ErrInvalidKind, name)
	}
}

func TestFactory_NothingOpenedUntilConnect(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	pub, err := pubsub.NewPublisher(pubsub.Config{}, pubsub.WithSocketFactory(b.Factory()))
	require.NoError(t, err)
	assert.Zero(t, b.Created())

	assert.ErrorIs(t, pub.Send(heartbeat("s1")), transport.ErrNotConnected)
}

func TestFactory_Defaults(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()

	// subscribers bind and publishers connect by default, both on DefaultEndpoint
	sub := connectedSubscriber(t, b, pubsub.Config{})
	pub := connectedPublisher(t, b, pubsub.Config{})
	assert.Equal(t, 1, b.Subscribers(pubsub.DefaultEndpoint))

	require.NoError(t, pub.Send(heartbeat("defaults")))
	msg, err := sub.Next()
	require.NoError(t, err)
	assert.Equal(t, "defaults", msg.Sender())

	// a second default subscriber tries to bind the same address
	other, err := pubsub.NewSubscriber(pubsub.Config{}, pubsub.WithSocketFactory(b.Factory()))
	require.NoError(t, err)
	err = other.Connect()
	assert.ErrorIs(t, err, transport.ErrTransport)
	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.NotEmpty(t, terr.Hint)
}
