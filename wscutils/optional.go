package wscutils

import "encoding/json"

// Optional is a field of a request or response that distinguishes three
// states the flat Go zero value cannot: absent from the JSON, present as
// null, and present with a value. PATCH-style services need the
// distinction to tell "leave unchanged" from "clear" from "set".
//
// The zero value means absent. Note that encoding/json's omitempty never
// omits a struct, so an absent Optional marshals as its zero value; use
// the go1.24 omitzero tag to drop absent fields from output.
type Optional[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// NewOptional returns an Optional holding v.
func NewOptional[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// NewOptionalNull returns an Optional that was explicitly set to null.
func NewOptionalNull[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

// NewOptionalAbsent returns an Optional in the absent state.
func NewOptionalAbsent[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and true when one is actually held, meaning the
// field was present and not null.
func (o Optional[T]) Get() (T, bool) {
	if !o.Present || o.Null {
		var zero T
		return zero, false
	}
	return o.Value, true
}

// IsZero reports whether the field is absent, which lets the go1.24
// omitzero JSON tag skip it during marshalling.
func (o Optional[T]) IsZero() bool {
	return !o.Present
}

// MarshalJSON writes null for a null Optional and the held value
// otherwise. An absent Optional writes the zero value of T; omitting it
// entirely is the job of the omitzero tag on the enclosing struct.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON records that the field was present and whether it was
// null. A field missing from the input never reaches this method, which
// is what keeps the zero value meaning absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		var zero T
		o.Value = zero
		o.Present = true
		o.Null = true
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = v
	o.Present = true
	o.Null = false
	return nil
}
