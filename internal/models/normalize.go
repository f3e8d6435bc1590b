package models

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Normalize returns a deep copy of r restricted to JSON document values
// (null, bool, float64, string, []any, map[string]any), the value model of
// the remote document store. Values that have no document representation
// produce an error.
func Normalize(r Record) (Record, error) {
	s, err := structpb.NewStruct(r)
	if err == nil {
		return s.AsMap(), nil
	}

	// Typed values (decimal, nested structs, typed slices) take one trip
	// through JSON before conversion.
	data, jerr := json.Marshal(r)
	if jerr != nil {
		return nil, fmt.Errorf("normalize record: %w", err)
	}
	var generic map[string]any
	if jerr := json.Unmarshal(data, &generic); jerr != nil {
		return nil, fmt.Errorf("normalize record: %w", jerr)
	}
	s, err = structpb.NewStruct(generic)
	if err != nil {
		return nil, fmt.Errorf("normalize record: %w", err)
	}
	return s.AsMap(), nil
}

// Encode converts a typed schema value into a Record.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return r, nil
}

// Decode converts a Record into a typed schema value.
func Decode[T any](r Record) (T, error) {
	var v T
	data, err := json.Marshal(r)
	if err != nil {
		return v, fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode record: %w", err)
	}
	return v, nil
}
