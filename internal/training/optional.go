package training

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that may be absent. A present zero value is still present.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an absent value
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Or returns the value when present, def otherwise
func (o Optional[T]) Or(def T) T {
	if !o.Valid {
		return def
	}
	return o.Value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
