package progress

import (
	"encoding/json"

	"github.com/volatiletech/null/v8"
)

// OptionalInt tells apart a field left out of a JSON payload (Set == false)
// from one explicitly set to null (Set == true, Value invalid).
type OptionalInt struct {
	Set   bool
	Value null.Int
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

// OptionalString is the string flavour of OptionalInt.
type OptionalString struct {
	Set   bool
	Value null.String
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

func SetInt(i int) OptionalInt { return OptionalInt{Set: true, Value: null.IntFrom(i)} }
func SetString(s string) OptionalString { return OptionalString{Set: true, Value: null.StringFrom(s)} }
func ClearInt() OptionalInt { return OptionalInt{Set: true} }
func ClearString() OptionalString { return OptionalString{Set: true} }
