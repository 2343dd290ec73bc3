package message

import (
	"fmt"
	"strings"
)

// Kind names one of the top-level message shapes. KindAuto is only valid as a
// decode constraint and means "try every shape in declared order".
type Kind string

const (
	KindAuto    Kind = "auto"
	KindSensor  Kind = "sensor"
	KindDisplay Kind = "display"
	KindMotor   Kind = "motor"
)

// declaredOrder is the order used by auto decoding. First match wins.
var declaredOrder = []Kind{KindSensor, KindDisplay, KindMotor}

// ParseKind converts a configuration string into a Kind.
// An empty string is treated as KindAuto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAuto, nil
	case KindAuto, KindSensor, KindDisplay, KindMotor:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown message kind %q", ErrInvalidKind, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so Kind can be loaded
// straight from environment variables and YAML.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) String() string { return string(k) }

// PayloadKind discriminates the payload variants of a SensorMessage.
type PayloadKind string

const (
	PayloadSensor    PayloadKind = "sensor"
	PayloadHeartBeat PayloadKind = "heartbeat"
)

// payloadOrder is the first-match order for untagged sensor payloads.
var payloadOrder = []PayloadKind{PayloadSensor, PayloadHeartBeat}

// DataType describes the payload carried by a SensorMessage. Producers may use
// any value; the constants are the canonical ones.
type DataType string

const (
	DataTypeSensor    DataType = "sensor"
	DataTypeHeartBeat DataType = "heartbeat"
)

func (d DataType) String() string { return string(d) }

// MotorState is the folding state reported to, or ordered from, the motor unit.
// Values outside the constants are carried through untouched.
type MotorState string

const (
	MotorStateStartingUp MotorState = "starting_up"
	MotorStateFolded     MotorState = "folded"
	MotorStateFolding    MotorState = "folding"
	MotorStateDeploying  MotorState = "deploying"
	MotorStateDeployed   MotorState = "deployed"
	MotorStateError      MotorState = "error"
)

func (s MotorState) String() string { return string(s) }
