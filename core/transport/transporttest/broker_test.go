package transporttest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/transport"
	"github.com/dmitrymomot/msgbus/core/transport/transporttest"
)

func newSocket(t *testing.T, b *transporttest.Broker, role transport.Role) transport.Socket {
	t.Helper()
	s, err := b.Factory()(context.Background(), role)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBroker_PrefixDelivery(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub := newSocket(t, b, transport.RoleSubscribe)
	require.NoError(t, sub.Bind("inproc://bus"))
	require.NoError(t, sub.Subscribe("a "))

	pub := newSocket(t, b, transport.RolePublish)
	require.NoError(t, pub.Connect("inproc://bus"))

	require.NoError(t, pub.Send([]byte("b {}")))
	require.NoError(t, pub.Send([]byte("a {}")))

	frame, err := sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a {}", string(frame))
	assert.Equal(t, int64(2), b.Published())
}

func TestBroker_DoubleBind(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	first := newSocket(t, b, transport.RoleSubscribe)
	require.NoError(t, first.Bind("inproc://bus"))

	second := newSocket(t, b, transport.RoleSubscribe)
	err := second.Bind("inproc://bus")
	require.ErrorIs(t, err, transporttest.ErrAddrInUse)

	require.NoError(t, first.Close())
	assert.NoError(t, second.Bind("inproc://bus"))
}

func TestBroker_HWMDrops(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub := newSocket(t, b, transport.RoleSubscribe)
	require.NoError(t, sub.SetOption(transport.OptionHWM, 2))
	require.NoError(t, sub.Bind("inproc://bus"))
	require.NoError(t, sub.Subscribe(""))

	pub := newSocket(t, b, transport.RolePublish)
	require.NoError(t, pub.Connect("inproc://bus"))
	for range 5 {
		require.NoError(t, pub.Send([]byte("x")))
	}
	assert.Equal(t, int64(3), b.Dropped())
}

func TestBroker_CloseUnblocksRecv(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub := newSocket(t, b, transport.RoleSubscribe)
	require.NoError(t, sub.Bind("inproc://bus"))

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Recv()
		errCh <- err
	}()

	require.NoError(t, sub.Close())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, transporttest.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Recv did not return after Close")
	}
}

func TestBroker_ContextCancelUnblocksRecv(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Factory()(ctx, transport.RoleSubscribe)
	require.NoError(t, err)
	require.NoError(t, sub.Connect("inproc://bus"))

	cancel()
	_, err = sub.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}
