package message

import (
	"encoding/json"
	"math"
)

// Message is the closed set of top-level envelopes: *SensorMessage,
// *DisplayMessage and *MotorMessage.
type Message interface {
	// Kind reports the concrete shape.
	Kind() Kind
	// Sender returns the sender_id.
	Sender() string
	// Validate checks field constraints that the wire structure cannot express.
	Validate() error

	isMessage()
}

// Payload is the closed set of SensorMessage payloads: *SensorPayload and
// *HeartBeatPayload.
type Payload interface {
	PayloadKind() PayloadKind
	Validate() error

	isPayload()
}

// SensorMessage is the telemetry envelope emitted by sensor units and by any
// device reporting a heartbeat.
type SensorMessage struct {
	SenderID   string
	SenderName string // optional; empty is sent as null
	Timestamp  Timestamp
	DataType   DataType
	Payload    Payload
	// SequenceNo is assigned by the publisher at send time when left at zero.
	SequenceNo uint64
}

// NewSensorMessage builds a SensorMessage stamped with the current time.
func NewSensorMessage(senderID, senderName string, dataType DataType, payload Payload) *SensorMessage {
	return &SensorMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Timestamp:  Now(),
		DataType:   dataType,
		Payload:    payload,
	}
}

func (*SensorMessage) Kind() Kind { return KindSensor }
func (m *SensorMessage) Sender() string { return m.SenderID }
func (*SensorMessage) isMessage() {}

// Validate checks the envelope and its payload.
func (m *SensorMessage) Validate() error {
	if m.SenderID == "" {
		return &ValidationError{Field: "sender_id", Value: m.SenderID, Reason: "must not be empty"}
	}
	if m.Payload == nil {
		return &ValidationError{Field: "payload", Value: nil, Reason: "is required"}
	}
	if err := checkSequence(m.SequenceNo); err != nil {
		return err
	}
	return m.Payload.Validate()
}

// checkSequence keeps n within the signed range the wire format accepts.
func checkSequence(n uint64) error {
	if n > math.MaxInt64 {
		return &ValidationError{Field: "sequence_no", Value: n, Reason: "exceeds the wire range"}
	}
	return nil
}

// Status returns the status code and text carried by the payload.
func (m *SensorMessage) Status() (int, string, error) {
	switch p := m.Payload.(type) {
	case *SensorPayload:
		return p.SensorStatusCode, p.SensorStatus, nil
	case *HeartBeatPayload:
		return p.StatusCode, p.Status, nil
	default:
		return 0, "", ErrUnsupportedOperation
	}
}

// MarshalJSON writes the envelope with its message_type discriminator.
func (m SensorMessage) MarshalJSON() ([]byte, error) {
	if err := checkSequence(m.SequenceNo); err != nil {
		return nil, err
	}
	payload := []byte("null")
	if m.Payload != nil {
		var err error
		if payload, err = json.Marshal(m.Payload); err != nil {
			return nil, err
		}
	}
	return json.Marshal(sensorWire{
		MessageType: KindSensor,
		SenderID:    m.SenderID,
		SenderName:  nullable(m.SenderName),
		Timestamp:   &m.Timestamp,
		DataType:    m.DataType,
		Payload:     payload,
		SequenceNo:  int64(m.SequenceNo),
	})
}

// UnmarshalJSON decodes strictly as a SensorMessage.
func (m *SensorMessage) UnmarshalJSON(data []byte) error {
	msg, err := decodeAs(data, KindSensor)
	if err != nil {
		return err
	}
	*m = *msg.(*SensorMessage)
	return nil
}

// SensorPayload carries a human-detection reading.
type SensorPayload struct {
	IsThereHuman bool `json:"isThereHuman"`
	// HumanExistPossibility is nil when the sensor cannot estimate it; otherwise in [0,100].
	HumanExistPossibility *float64 `json:"human_exist_possibility"`
	SensorStatus          string   `json:"sensor_status"`
	SensorStatusCode      int      `json:"sensor_status_code"`
}

func (*SensorPayload) PayloadKind() PayloadKind { return PayloadSensor }
func (*SensorPayload) isPayload() {}

func (p *SensorPayload) Validate() error {
	return checkPossibility("payload.human_exist_possibility", p.HumanExistPossibility)
}

func (p SensorPayload) MarshalJSON() ([]byte, error) {
	type plain SensorPayload
	return json.Marshal(struct {
		PayloadType PayloadKind `json:"payload_type"`
		plain
	}{PayloadSensor, plain(p)})
}

// HeartBeatPayload carries device health.
//
// Displays report "starting up", "running" or "error"; motors report
// "starting up" or "folded".
type HeartBeatPayload struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
}

func (*HeartBeatPayload) PayloadKind() PayloadKind { return PayloadHeartBeat }
func (*HeartBeatPayload) isPayload() {}
func (*HeartBeatPayload) Validate() error { return nil }

func (p HeartBeatPayload) MarshalJSON() ([]byte, error) {
	type plain HeartBeatPayload
	return json.Marshal(struct {
		PayloadType PayloadKind `json:"payload_type"`
		plain
	}{PayloadHeartBeat, plain(p)})
}

// SensorDisplayMode is what a display shows for one sensor slot.
type SensorDisplayMode struct {
	SensorName            string   `json:"sensor_name"`
	IsThereHuman          bool     `json:"is_there_human"`
	HumanExistPossibility *float64 `json:"human_exist_possibility"`
}

// DisplayMessage is emitted by the display controller.
type DisplayMessage struct {
	SenderID          string
	Timestamp         Timestamp
	IsOverrideMode    bool
	SensorDisplayDict map[string]SensorDisplayMode
	MoterMode         MotorState
}

// NewDisplayMessage builds a DisplayMessage stamped with the current time.
func NewDisplayMessage(senderID string, override bool, motorMode MotorState, slots map[string]SensorDisplayMode) *DisplayMessage {
	if slots == nil {
		slots = make(map[string]SensorDisplayMode)
	}
	return &DisplayMessage{
		SenderID:          senderID,
		Timestamp:         Now(),
		IsOverrideMode:    override,
		SensorDisplayDict: slots,
		MoterMode:         motorMode,
	}
}

func (*DisplayMessage) Kind() Kind { return KindDisplay }
func (m *DisplayMessage) Sender() string { return m.SenderID }
func (*DisplayMessage) isMessage() {}

func (m *DisplayMessage) Validate() error {
	if m.SenderID == "" {
		return &ValidationError{Field: "sender_id", Value: m.SenderID, Reason: "must not be empty"}
	}
	for slot, mode := range m.SensorDisplayDict {
		if err := checkPossibility("sensor_display_dict."+slot+".human_exist_possibility", mode.HumanExistPossibility); err != nil {
			return err
		}
	}
	return nil
}

func (m DisplayMessage) MarshalJSON() ([]byte, error) {
	slots := m.SensorDisplayDict
	if slots == nil {
		slots = map[string]SensorDisplayMode{}
	}
	return json.Marshal(displayWire{
		MessageType:       KindDisplay,
		SenderID:          m.SenderID,
		Timestamp:         &m.Timestamp,
		IsOverrideMode:    m.IsOverrideMode,
		SensorDisplayDict: slots,
		MoterMode:         m.MoterMode,
	})
}

// UnmarshalJSON decodes strictly as a DisplayMessage.
func (m *DisplayMessage) UnmarshalJSON(data []byte) error {
	msg, err := decodeAs(data, KindDisplay)
	if err != nil {
		return err
	}
	*m = *msg.(*DisplayMessage)
	return nil
}

// MotorMessage orders the motor unit into a state.
type MotorMessage struct {
	SenderID       string
	Timestamp      Timestamp
	IsOverrideMode bool
	OrderedMode    MotorState
}

// NewMotorMessage builds a MotorMessage stamped with the current time.
func NewMotorMessage(senderID string, override bool, ordered MotorState) *MotorMessage {
	return &MotorMessage{
		SenderID:       senderID,
		Timestamp:      Now(),
		IsOverrideMode: override,
		OrderedMode:    ordered,
	}
}

func (*MotorMessage) Kind() Kind { return KindMotor }
func (m *MotorMessage) Sender() string { return m.SenderID }
func (*MotorMessage) isMessage() {}

func (m *MotorMessage) Validate() error {
	if m.SenderID == "" {
		return &ValidationError{Field: "sender_id", Value: m.SenderID, Reason: "must not be empty"}
	}
	return nil
}

func (m MotorMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(motorWire{
		MessageType:    KindMotor,
		SenderID:       m.SenderID,
		Timestamp:      &m.Timestamp,
		IsOverrideMode: m.IsOverrideMode,
		OrderedMode:    m.OrderedMode,
	})
}

// UnmarshalJSON decodes strictly as a MotorMessage.
func (m *MotorMessage) UnmarshalJSON(data []byte) error {
	msg, err := decodeAs(data, KindMotor)
	if err != nil {
		return err
	}
	*m = *msg.(*MotorMessage)
	return nil
}

// Status returns the status of a SensorMessage. Any other kind fails with
// ErrUnsupportedOperation.
func Status(m Message) (int, string, error) {
	switch msg := m.(type) {
	case *SensorMessage:
		return msg.Status()
	default:
		return 0, "", ErrUnsupportedOperation
	}
}

// Possibility is a helper for filling optional human_exist_possibility fields.
func Possibility(v float64) *float64 {
	return &v
}

func checkPossibility(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v < 0 || *v > 100 {
		return &ValidationError{Field: field, Value: *v, Reason: "must be within [0, 100]"}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
