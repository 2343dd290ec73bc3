package pubsub_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/metrics"
	"github.com/dmitrymomot/msgbus/core/pubsub"
	"github.com/dmitrymomot/msgbus/core/transport"
	"github.com/dmitrymomot/msgbus/core/transport/transporttest"
)

func TestStripTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{name: "raw json", frame: `{"a":1}`, want: `{"a":1}`},
		{name: "topic", frame: `sensor {"a":1}`, want: `{"a":1}`},
		{name: "empty topic", frame: ` {"a":1}`, want: `{"a":1}`},
		{name: "topic with space", frame: `sensor hb {"a":1}`, want: `{"a":1}`},
		{name: "no json", frame: `garbage`, want: `garbage`},
		{name: "empty", frame: ``, want: ``},
		{name: "nested brace stays", frame: `{"a":{"b":1}}`, want: `{"a":{"b":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(pubsub.StripTopic([]byte(tt.frame))))
		})
	}
}

func TestSubscriber_TopicFiltering(t *testing.T) {
	t.Parallel()

	ctx := timeout(t, defaultWait)
	shared, terminate := transport.NewContext(transport.KindAsync)
	defer terminate()

	b := transporttest.NewBroker()
	opt := pubsub.WithSocketFactory(b.Factory())

	cfg := subConfig("inproc://filter", "sensor ")
	cfg.Context = shared
	sub, err := pubsub.NewAsyncSubscriber(cfg, opt)
	require.NoError(t, err)
	require.NoError(t, sub.Connect(ctx))
	defer sub.Close()

	pubs := map[string]*pubsub.AsyncPublisher{}
	for _, topic := range []string{"sensor", "displayHB", ""} {
		cfg := pubConfig("inproc://filter", topic)
		cfg.Context = shared
		pub, err := pubsub.NewAsyncPublisher(cfg, opt)
		require.NoError(t, err)
		require.NoError(t, pub.Connect(ctx))
		defer pub.Close()
		pubs[topic] = pub
	}

	require.NoError(t, pubs["displayHB"].Send(ctx, heartbeat("pub_b_displayHB_topic")))
	require.NoError(t, pubs[""].Send(ctx, heartbeat("pub_c_no_topic")))
	require.NoError(t, pubs["sensor"].Send(ctx, heartbeat("pub_a_sensor_topic")))

	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pub_a_sensor_topic", msg.Sender())

	short := timeout(t, 30*time.Millisecond)
	_, err = sub.Next(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscriber_SubscribeAllMixedTopics(t *testing.T) {
	t.Parallel()

	shared, terminate := transport.NewContext(transport.KindSync)
	defer terminate()

	b := transporttest.NewBroker()
	cfg := subConfig("inproc://mixed")
	cfg.Context = shared
	sub := connectedSubscriber(t, b, cfg)

	want := []string{"pub_a_sensor_topic", "pub_b_displayHB_topic", "pub_c_no_topic"}
	for i, topic := range []string{"sensor", "displayHB", ""} {
		cfg := pubConfig("inproc://mixed", topic)
		cfg.Context = shared
		pub := connectedPublisher(t, b, cfg)
		require.NoError(t, pub.Send(heartbeat(want[i])))
		require.NoError(t, pub.Close())
	}
	// closing borrowers leaves the shared context alive
	require.NoError(t, shared.Err())

	for _, sender := range want {
		msg, err := sub.Next()
		require.NoError(t, err)
		assert.Equal(t, sender, msg.Sender())
	}
}

func TestSubscriber_DecodeFailuresDoNotEndStream(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	reg := prometheus.NewRegistry()
	sub := connectedSubscriber(t, b, subConfig("inproc://bad"), pubsub.WithMetrics(metrics.MustNew(reg)))
	pub := connectedPublisher(t, b, pubConfig("inproc://bad", ""))

	require.NoError(t, pub.SendRaw("garbage"))
	require.NoError(t, pub.SendRaw(`{"foo":1}`))
	require.NoError(t, pub.SendRaw(`{"sender_id":"s","data_type":"sensor","payload":{"isThereHuman":true,`+
		`"human_exist_possibility":101.0,"sensor_status":"ok","sensor_status_code":0},"sequence_no":0}`))
	require.NoError(t, pub.Send(heartbeat("good")))

	msg, err := sub.Next()
	require.NoError(t, err)
	assert.Equal(t, "good", msg.Sender())
	assert.Equal(t, 3.0, counter(t, reg, "msgbus_decode_failures_total"))
	assert.Equal(t, 4.0, counter(t, reg, "msgbus_frames_received_total"))
}

func TestSubscriber_ExpectedKind(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	cfg := subConfig("inproc://kind")
	cfg.ExpectedKind = message.KindMotor
	sub := connectedSubscriber(t, b, cfg)
	pub := connectedPublisher(t, b, pubConfig("inproc://kind", ""))

	require.NoError(t, pub.Send(heartbeat("sensor-1")))
	require.NoError(t, pub.Send(message.NewMotorMessage("motor-1", false, message.MotorStateFolded)))

	msg, err := sub.Next()
	require.NoError(t, err)
	motor, ok := msg.(*message.MotorMessage)
	require.True(t, ok)
	assert.Equal(t, message.MotorStateFolded, motor.OrderedMode)
}

func TestSubscriber_RoundTripAllKinds(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub := connectedSubscriber(t, b, subConfig("inproc://kinds"))
	pub := connectedPublisher(t, b, pubConfig("inproc://kinds", "all"))

	sensor := message.NewSensorMessage("cam-1", "Camera", message.DataTypeSensor, &message.SensorPayload{
		IsThereHuman:          true,
		HumanExistPossibility: message.Possibility(25.25),
		SensorStatus:          "ok",
		SensorStatusCode:      0,
	})
	display := message.NewDisplayMessage("disp-1", true, message.MotorStateDeployed, map[string]message.SensorDisplayMode{
		"left": {SensorName: "cam-1", IsThereHuman: true, HumanExistPossibility: message.Possibility(25.25)},
	})
	motor := message.NewMotorMessage("motor-1", false, message.MotorStateFolding)

	for _, m := range []message.Message{sensor, display, motor} {
		require.NoError(t, pub.Send(m))
	}

	got, err := sub.Next()
	require.NoError(t, err)
	gs := got.(*message.SensorMessage)
	assert.Equal(t, 25.25, *gs.Payload.(*message.SensorPayload).HumanExistPossibility)
	assert.Equal(t, "Camera", gs.SenderName)

	got, err = sub.Next()
	require.NoError(t, err)
	gd := got.(*message.DisplayMessage)
	assert.True(t, gd.IsOverrideMode)
	assert.Equal(t, display.SensorDisplayDict, gd.SensorDisplayDict)

	got, err = sub.Next()
	require.NoError(t, err)
	assert.Equal(t, message.MotorStateFolding, got.(*message.MotorMessage).OrderedMode)
}

func TestSubscriber_AllEndsOnClose(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub, err := pubsub.NewSubscriber(subConfig("inproc://all"), pubsub.WithSocketFactory(b.Factory()))
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan string, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.All() {
			received <- msg.Sender()
		}
	}()

	require.Eventually(t, func() bool { return b.Subscribers("inproc://all") == 1 }, defaultWait, 5*time.Millisecond)
	pub := connectedPublisher(t, b, pubConfig("inproc://all", ""))
	require.NoError(t, pub.Send(heartbeat("one")))
	require.NoError(t, pub.Send(heartbeat("two")))

	for _, want := range []string{"one", "two"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(defaultWait):
			t.Fatal("message not received")
		}
	}

	require.NoError(t, sub.Close())
	select {
	case <-done:
	case <-time.After(defaultWait):
		t.Fatal("All did not end after Close")
	}

	_, err = sub.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSubscriber_AllStopsOnBreak(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub := connectedSubscriber(t, b, subConfig("inproc://break"))
	pub := connectedPublisher(t, b, pubConfig("inproc://break", ""))
	require.NoError(t, pub.Send(heartbeat("first")))
	require.NoError(t, pub.Send(heartbeat("second")))

	for msg := range sub.All() {
		assert.Equal(t, "first", msg.Sender())
		break
	}

	msg, err := sub.Next()
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Sender())
}

func TestSubscriber_UseClosesOnError(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub, err := pubsub.NewSubscriber(subConfig("inproc://suse"), pubsub.WithSocketFactory(b.Factory()))
	require.NoError(t, err)

	err = sub.Use(func(*pubsub.Subscriber) error { return io.ErrUnexpectedEOF })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Zero(t, b.Subscribers("inproc://suse"))

	_, err = sub.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSubscriber_AllAfterCloseDoesNotReconnect(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub := connectedSubscriber(t, b, subConfig("inproc://all-closed"))
	require.NoError(t, sub.Close())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.All() {
			t.Error("closed subscriber yielded a message")
		}
	}()

	select {
	case <-done:
	case <-time.After(defaultWait):
		t.Fatal("All did not end on a closed subscriber")
	}
	assert.False(t, sub.Connected())
	assert.Equal(t, int64(1), b.Created())
	assert.Zero(t, b.Subscribers("inproc://all-closed"))

	require.NoError(t, sub.Connect())
	assert.True(t, sub.Connected())
}

func TestAsyncSubscriber_MessagesAfterCloseDoesNotReconnect(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	ctx := timeout(t, defaultWait)
	sub, err := pubsub.NewAsyncSubscriber(subConfig("inproc://chan-closed"), pubsub.WithSocketFactory(b.Factory()))
	require.NoError(t, err)
	require.NoError(t, sub.Connect(ctx))
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Messages(ctx):
		assert.False(t, ok)
	case <-time.After(defaultWait):
		t.Fatal("Messages did not end on a closed subscriber")
	}
	assert.False(t, sub.Connected())
	assert.Equal(t, int64(1), b.Created())

	require.NoError(t, sub.Connect(ctx))
	defer sub.Close()
	assert.True(t, sub.Connected())
}

func TestAsyncSubscriber_Messages(t *testing.T) {
	t.Parallel()

	b := transporttest.NewBroker()
	sub, err := pubsub.NewAsyncSubscriber(subConfig("inproc://chan"), pubsub.WithSocketFactory(b.Factory()))
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := sub.Messages(ctx)

	require.Eventually(t, func() bool { return b.Subscribers("inproc://chan") == 1 }, defaultWait, 5*time.Millisecond)
	pub := connectedPublisher(t, b, pubConfig("inproc://chan", ""))
	require.NoError(t, pub.Send(heartbeat("m1")))
	require.NoError(t, pub.Send(heartbeat("m2")))

	for _, want := range []string{"m1", "m2"} {
		select {
		case msg := <-out:
			assert.Equal(t, want, msg.Sender())
		case <-time.After(defaultWait):
			t.Fatal("message not received")
		}
	}

	cancel()
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(defaultWait):
		t.Fatal("channel not closed after cancel")
	}
}

func TestAsyncSubscriber_DropOnFullBuffer(t *testing.T) {
	t.Parallel()

	const sent = 20

	b := transporttest.NewBroker()
	reg := prometheus.NewRegistry()
	ctx := timeout(t, defaultWait)

	cfg := subConfig("inproc://drop")
	cfg.BufferLimit = 2
	sub, err := pubsub.NewAsyncSubscriber(cfg,
		pubsub.WithSocketFactory(b.Factory()), pubsub.WithMetrics(metrics.MustNew(reg)))
	require.NoError(t, err)
	require.NoError(t, sub.Connect(ctx))
	defer sub.Close()

	pub := connectedPublisher(t, b, pubConfig("inproc://drop", ""))
	for i := range sent {
		require.NoError(t, pub.Send(heartbeat(fmt.Sprintf("s%d", i))))
	}

	require.Eventually(t, func() bool {
		return b.Dropped()+int64(counter(t, reg, "msgbus_frames_dropped_total")) == sent-2
	}, defaultWait, 5*time.Millisecond)

	received := 0
	for {
		short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		_, err := sub.Next(short)
		cancel()
		if err != nil {
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			break
		}
		received++
	}
	assert.Equal(t, 2, received)
	assert.Less(t, received, sent)
}
