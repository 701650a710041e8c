package schema

import "github.com/hamba/avro/v2"

func AvroEncodeFn(s avro.Schema) func(v any) ([]byte, error) {
	return func(v any) ([]byte, error) {
		return avro.Marshal(s, v)
	}
}

func AvroDecodeFn(s avro.Schema) func([]byte, any) error {
	return func(data []byte, v any) error {
		return avro.Unmarshal(s, data, v)
	}
}

// Subject returns the registry subject of record values in topic.
func Subject(topic string) string {
	return topic + "-value"
}
