package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const CheckoutEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "checkout",
	"name": "checkout_event",
	"fields": [
		{"name": "reference", "type": "string"},
		{"name": "buyer", "type": "string"},
		{"name": "recipient", "type": "string"},
		{"name": "mint", "type": "string"},
		{"name": "amount", "type": "string"},
		{"name": "minor_units", "type": "long"},
		{"name": "decimals", "type": "int"},
		{"name": "discount", "type": {
			"type": "record",
			"name": "checkout_discount",
			"fields": [
				{"name": "kind", "type": {"type": "enum", "name": "discount_kind", "symbols": ["award", "redeem"]}},
				{"name": "units", "type": "long"},
				{"name": "multiplier", "type": "string"}
			]
		}},
		{"name": "created_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type (
	// Amounts travel as decimal strings so no precision is lost.
	CheckoutEventV1 struct {
		Reference  string             `avro:"reference"`
		Buyer      string             `avro:"buyer"`
		Recipient  string             `avro:"recipient"`
		Mint       string             `avro:"mint"`
		Amount     string             `avro:"amount"`
		MinorUnits int64              `avro:"minor_units"`
		Decimals   int32              `avro:"decimals"`
		Discount   CheckoutDiscountV1 `avro:"discount"`
		CreatedAt  time.Time          `avro:"created_at"`
	}

	CheckoutDiscountV1 struct {
		Kind       string `avro:"kind"`
		Units      int64  `avro:"units"`
		Multiplier string `avro:"multiplier"`
	}
)

// CheckoutEventV1Avro panics on an invalid schema text.
func CheckoutEventV1Avro() avro.Schema {
	return avro.MustParse(CheckoutEventSchemaTextV1)
}
