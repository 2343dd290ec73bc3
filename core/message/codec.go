package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNilMessage is returned when encoding a nil message.
var ErrNilMessage = errors.New("message: nil message")

const (
	messageTypeKey = "message_type"
	payloadTypeKey = "payload_type"
)

type sensorWire struct {
	MessageType Kind            `json:"message_type,omitempty"`
	SenderID    string          `json:"sender_id"`
	SenderName  *string         `json:"sender_name"`
	Timestamp   *Timestamp      `json:"timestamp,omitempty"`
	DataType    DataType        `json:"data_type"`
	Payload     json.RawMessage `json:"payload"`
	SequenceNo  int64           `json:"sequence_no"`
}

type displayWire struct {
	MessageType       Kind                         `json:"message_type,omitempty"`
	SenderID          string                       `json:"sender_id"`
	Timestamp         *Timestamp                   `json:"timestamp,omitempty"`
	IsOverrideMode    bool                         `json:"is_override_mode"`
	SensorDisplayDict map[string]SensorDisplayMode `json:"sensor_display_dict"`
	MoterMode         MotorState                   `json:"moter_mode"`
}

type motorWire struct {
	MessageType    Kind       `json:"message_type,omitempty"`
	SenderID       string     `json:"sender_id"`
	Timestamp      *Timestamp `json:"timestamp,omitempty"`
	IsOverrideMode bool       `json:"is_override_mode"`
	OrderedMode    MotorState `json:"ordered_mode"`
}

// Encode serializes m. The output is deterministic for a given message and
// carries message_type (and payload_type for sensor messages) discriminators.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case *SensorMessage:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return json.Marshal(msg)
	case *DisplayMessage:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return json.Marshal(msg)
	case *MotorMessage:
		if msg == nil {
			return nil, ErrNilMessage
		}
		return json.Marshal(msg)
	default:
		return nil, ErrNilMessage
	}
}

// Decode parses data into one of the known message kinds.
//
// A message_type discriminator, when present, selects the kind directly.
// Untagged frames are matched structurally: with KindAuto the kinds are tried
// in the order sensor, display, motor and the first whose required fields are
// present and well-typed wins. With an explicit kind only that shape is tried.
// Constraint violations in a matched shape fail with a ValidationError and
// are never retried against another shape.
func Decode(data []byte, expected Kind) (Message, error) {
	switch expected {
	case "", KindAuto:
		return decodeAuto(data)
	case KindSensor, KindDisplay, KindMotor:
		return decodeAs(data, expected)
	default:
		return nil, &DecodeError{Expected: expected, Reason: "unknown expected kind", Err: ErrInvalidKind}
	}
}

func decodeAuto(data []byte) (Message, error) {
	tag, err := peekTag(data, messageTypeKey)
	if err != nil {
		return nil, &DecodeError{Expected: KindAuto, Reason: "malformed frame", Err: err}
	}
	if tag != "" {
		k := Kind(tag)
		if !isConcrete(k) {
			return nil, &DecodeError{Expected: KindAuto, Reason: fmt.Sprintf("unknown %s %q", messageTypeKey, tag)}
		}
		return decodeShape(data, k)
	}

	var last error
	for _, k := range declaredOrder {
		msg, err := decodeShape(data, k)
		if err == nil {
			return msg, nil
		}
		if errors.Is(err, ErrValidation) {
			return nil, err
		}
		last = err
	}
	return nil, &DecodeError{Expected: KindAuto, Reason: "no message kind matched", Err: last}
}

// decodeAs never falls back to another kind.
func decodeAs(data []byte, k Kind) (Message, error) {
	tag, err := peekTag(data, messageTypeKey)
	if err != nil {
		return nil, &DecodeError{Expected: k, Reason: "malformed frame", Err: err}
	}
	if tag != "" && Kind(tag) != k {
		return nil, &DecodeError{Expected: k, Reason: fmt.Sprintf("frame is tagged %s %q", messageTypeKey, tag)}
	}
	return decodeShape(data, k)
}

func decodeShape(data []byte, k Kind) (Message, error) {
	mismatch, err := matchShape(messageSchemas[k], data)
	if err != nil {
		return nil, &DecodeError{Expected: k, Reason: "malformed frame", Err: err}
	}
	if mismatch != "" {
		return nil, &DecodeError{Expected: k, Reason: mismatch}
	}

	var msg Message
	switch k {
	case KindSensor:
		msg, err = decodeSensor(data)
	case KindDisplay:
		msg, err = decodeDisplay(data)
	case KindMotor:
		msg, err = decodeMotor(data)
	}
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeSensor(data []byte) (*SensorMessage, error) {
	var w sensorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Expected: KindSensor, Reason: "field type mismatch", Err: err}
	}
	if w.SequenceNo < 0 {
		return nil, &ValidationError{Field: "sequence_no", Value: w.SequenceNo, Reason: "must not be negative"}
	}
	payload, err := decodePayload(w.Payload)
	if err != nil {
		return nil, err
	}
	m := &SensorMessage{
		SenderID:   w.SenderID,
		Timestamp:  stampOrNow(w.Timestamp),
		DataType:   w.DataType,
		Payload:    payload,
		SequenceNo: uint64(w.SequenceNo),
	}
	if w.SenderName != nil {
		m.SenderName = *w.SenderName
	}
	return m, nil
}

func decodePayload(raw json.RawMessage) (Payload, error) {
	tag, err := peekTag(raw, payloadTypeKey)
	if err != nil {
		return nil, &DecodeError{Expected: KindSensor, Reason: "malformed payload", Err: err}
	}
	candidates := payloadOrder
	if tag != "" {
		pk := PayloadKind(tag)
		if _, ok := payloadSchemas[pk]; !ok {
			return nil, &DecodeError{Expected: KindSensor, Reason: fmt.Sprintf("unknown %s %q", payloadTypeKey, tag)}
		}
		candidates = []PayloadKind{pk}
	}

	var last string
	for _, pk := range candidates {
		mismatch, err := matchShape(payloadSchemas[pk], raw)
		if err != nil {
			return nil, &DecodeError{Expected: KindSensor, Reason: "malformed payload", Err: err}
		}
		if mismatch != "" {
			last = fmt.Sprintf("payload as %s: %s", pk, mismatch)
			continue
		}

		var p Payload
		switch pk {
		case PayloadSensor:
			p = &SensorPayload{}
		case PayloadHeartBeat:
			p = &HeartBeatPayload{}
		}
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, &DecodeError{Expected: KindSensor, Reason: "payload field type mismatch", Err: err}
		}
		return p, nil
	}
	return nil, &DecodeError{Expected: KindSensor, Reason: last}
}

func decodeDisplay(data []byte) (*DisplayMessage, error) {
	var w displayWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Expected: KindDisplay, Reason: "field type mismatch", Err: err}
	}
	slots := w.SensorDisplayDict
	if slots == nil {
		slots = make(map[string]SensorDisplayMode)
	}
	return &DisplayMessage{
		SenderID:          w.SenderID,
		Timestamp:         stampOrNow(w.Timestamp),
		IsOverrideMode:    w.IsOverrideMode,
		SensorDisplayDict: slots,
		MoterMode:         w.MoterMode,
	}, nil
}

func decodeMotor(data []byte) (*MotorMessage, error) {
	var w motorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Expected: KindMotor, Reason: "field type mismatch", Err: err}
	}
	return &MotorMessage{
		SenderID:       w.SenderID,
		Timestamp:      stampOrNow(w.Timestamp),
		IsOverrideMode: w.IsOverrideMode,
		OrderedMode:    w.OrderedMode,
	}, nil
}

// peekTag returns the string value of key in a JSON object, or "" when the
// key is absent or null.
func peekTag(data []byte, key string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err != nil {
		return "", fmt.Errorf("%s must be a string: %w", key, err)
	}
	return tag, nil
}

func isConcrete(k Kind) bool {
	_, ok := messageSchemas[k]
	return ok
}

func stampOrNow(ts *Timestamp) Timestamp {
	if ts == nil {
		return Now()
	}
	return *ts
}
