package message

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Shape schemas list the required fields and their JSON types only. Range
// constraints are checked afterwards by Validate so that a structural match
// with a bad value fails with ValidationError instead of falling through to
// the next candidate.
const (
	sensorMessageSchema = `{
		"type": "object",
		"required": ["sender_id", "data_type", "payload"],
		"properties": {
			"message_type": {"type": "string"},
			"sender_id":    {"type": "string"},
			"sender_name":  {"type": ["string", "null"]},
			"timestamp":    {"type": "string"},
			"data_type":    {"type": "string"},
			"payload":      {"type": "object"},
			"sequence_no":  {"type": "integer"}
		}
	}`

	displayMessageSchema = `{
		"type": "object",
		"required": ["sender_id", "is_override_mode", "moter_mode"],
		"properties": {
			"message_type":     {"type": "string"},
			"sender_id":        {"type": "string"},
			"timestamp":        {"type": "string"},
			"is_override_mode": {"type": "boolean"},
			"moter_mode":       {"type": "string"},
			"sensor_display_dict": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"required": ["sensor_name", "is_there_human"],
					"properties": {
						"sensor_name":             {"type": "string"},
						"is_there_human":          {"type": "boolean"},
						"human_exist_possibility": {"type": ["number", "null"]}
					}
				}
			}
		}
	}`

	motorMessageSchema = `{
		"type": "object",
		"required": ["sender_id", "is_override_mode", "ordered_mode"],
		"properties": {
			"message_type":     {"type": "string"},
			"sender_id":        {"type": "string"},
			"timestamp":        {"type": "string"},
			"is_override_mode": {"type": "boolean"},
			"ordered_mode":     {"type": "string"}
		}
	}`

	sensorPayloadSchema = `{
		"type": "object",
		"required": ["isThereHuman", "sensor_status", "sensor_status_code"],
		"properties": {
			"payload_type":            {"type": "string"},
			"isThereHuman":            {"type": "boolean"},
			"human_exist_possibility": {"type": ["number", "null"]},
			"sensor_status":           {"type": "string"},
			"sensor_status_code":      {"type": "integer"}
		}
	}`

	heartBeatPayloadSchema = `{
		"type": "object",
		"required": ["status", "status_code"],
		"properties": {
			"payload_type": {"type": "string"},
			"status":       {"type": "string"},
			"status_code":  {"type": "integer"}
		}
	}`
)

var (
	messageSchemas = map[Kind]*gojsonschema.Schema{
		KindSensor:  mustSchema(sensorMessageSchema),
		KindDisplay: mustSchema(displayMessageSchema),
		KindMotor:   mustSchema(motorMessageSchema),
	}

	payloadSchemas = map[PayloadKind]*gojsonschema.Schema{
		PayloadSensor:    mustSchema(sensorPayloadSchema),
		PayloadHeartBeat: mustSchema(heartBeatPayloadSchema),
	}
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("message: invalid shape schema: %v", err))
	}
	return s
}

// matchShape reports an empty string when data fits the schema, otherwise a
// description of the mismatch.
func matchShape(s *gojsonschema.Schema, data []byte) (string, error) {
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return "", err
	}
	if res.Valid() {
		return "", nil
	}
	parts := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; "), nil
}
