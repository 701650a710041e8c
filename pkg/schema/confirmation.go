package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const ConfirmationEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "checkout",
	"name": "confirmation_event",
	"fields": [
		{"name": "reference", "type": "string"},
		{"name": "state", "type": {"type": "enum", "name": "poll_state", "symbols": ["confirmed", "found_invalid", "cancelled"]}},
		{"name": "signature", "type": ["null", "string"], "default": null},
		{"name": "reason", "type": "string", "default": ""},
		{"name": "observed_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type ConfirmationEventV1 struct {
	Reference  string    `avro:"reference"`
	State      string    `avro:"state"`
	Signature  *string   `avro:"signature"`
	Reason     string    `avro:"reason"`
	ObservedAt time.Time `avro:"observed_at"`
}

func ConfirmationEventV1Avro() avro.Schema {
	return avro.MustParse(ConfirmationEventSchemaTextV1)
}
