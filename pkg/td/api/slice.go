package api

import (
	"encoding/json"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
)

// Slice is just a Go slice that marshals to JSON intuitively: a nil slice
// becomes `[]` rather than `null`, so list responses always carry an array.
type Slice[T any] []T

// MarshalJSON implements the `json.Marshaler` interface. It has a value
// receiver so that it also applies to response bodies which aren't
// addressable.
func (s Slice[T]) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(s))
}

// Schema implements the `huma.SchemaProvider` interface.
func (s Slice[T]) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:  "array",
		Items: r.Schema(reflect.TypeOf([0]T{}).Elem(), true, ""),
	}
}
