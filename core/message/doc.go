// Package message defines the telemetry envelopes exchanged over the bus and
// the codec that turns them into frames and back.
//
// # Message kinds
//
// Three top-level shapes exist: SensorMessage (a sensor or heartbeat reading
// wrapped in routing metadata), DisplayMessage (what the display controller
// shows per sensor slot) and MotorMessage (the state ordered from the motor
// unit). A SensorMessage carries one of two payloads: SensorPayload or
// HeartBeatPayload.
//
//	msg := message.NewSensorMessage("sensor-01", "Entrance", message.DataTypeSensor,
//		&message.SensorPayload{
//			IsThereHuman:          true,
//			HumanExistPossibility: message.Possibility(87.5),
//			SensorStatus:          "detecting",
//			SensorStatusCode:      101,
//		})
//
//	frame, err := message.Encode(msg)
//
// # Decoding
//
// Decode resolves the kind from the message_type discriminator written by
// Encode. Frames from senders that omit it are matched structurally: each
// candidate shape is tried in declared order (sensor, display, motor; and
// sensor before heartbeat for payloads) and the first whose required fields
// are all present and well-typed wins. Unknown fields are ignored.
//
//	msg, err := message.Decode(frame, message.KindAuto)
//	switch {
//	case errors.Is(err, message.ErrValidation):
//		// matched a shape but a value is out of range
//	case errors.Is(err, message.ErrDecode):
//		// no shape matched
//	}
//
// Timestamps travel as "YYYY-MM-DD HH:MM" in local time, so seconds are lost
// on the wire.
package message
