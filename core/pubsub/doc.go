// Package pubsub publishes and subscribes to typed telemetry envelopes over a
// topic-filtered PUB/SUB transport.
//
// Publishers and subscribers come in a blocking variant (Publisher,
// Subscriber) and a context-aware variant (AsyncPublisher, AsyncSubscriber)
// with the same contract. All four are built from a Config by the factory
// functions, which reject unsupported backends and mismatched shared
// contexts before any socket is created.
//
// Publishing:
//
//	pub, err := pubsub.NewPublisher(pubsub.Config{
//		Endpoint: "tcp://localhost:5555",
//		Topic:    "sensor",
//	}, pubsub.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	err = pub.Use(func(pub *pubsub.Publisher) error {
//		msg := message.NewSensorMessage("sensor-1", "", message.DataTypeHeartBeat,
//			&message.HeartBeatPayload{Status: "running", StatusCode: 200})
//		return pub.Send(msg)
//	})
//
// Send numbers unnumbered sensor messages from 0, validates, encodes and
// writes one frame. Failures are logged and returned unchanged.
//
// Subscribing:
//
//	sub, err := pubsub.NewSubscriber(pubsub.Config{
//		Endpoint: "tcp://*:5555",
//		Mode:     transport.ModeBind,
//		Topics:   []string{"sensor "},
//	})
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
//
//	for msg := range sub.All() {
//		code, text, err := message.Status(msg)
//		...
//	}
//
// Each frame is either raw JSON or "<topic> <json>"; the topic is stripped
// before decoding. Frames that fail to decode are logged and skipped, so one
// bad producer never ends a subscription. Closing the subscriber, from any
// goroutine, ends the range.
//
// Several publishers and subscribers of the same variant can share one
// transport.Context through Config.Context. Whoever created it terminates it.
package pubsub
