package models

import (
	"bytes"
	"encoding/json"
)

// FieldOp says what an update does to one field.
type FieldOp uint8

const (
	FieldKeep FieldOp = iota
	FieldSet
	FieldClear
)

// Field is a tri-state partial-update value: keep the current value, set a new one,
// or clear it. The zero value keeps. When decoded from JSON an absent key keeps,
// an explicit null clears and any other value sets.
type Field[T any] struct {
	op    FieldOp
	value T
}

// Keep leaves the field unchanged.
func Keep[T any]() Field[T] { return Field[T]{} }

// Set replaces the field with v.
func Set[T any](v T) Field[T] { return Field[T]{op: FieldSet, value: v} }

// Clear removes the field's value.
func Clear[T any]() Field[T] { return Field[T]{op: FieldClear} }

// Op returns the operation.
func (f Field[T]) Op() FieldOp { return f.op }

// Value returns the value and whether the operation is Set.
func (f Field[T]) Value() (T, bool) { return f.value, f.op == FieldSet }

// ApplyPtr applies the operation to a nullable field.
func (f Field[T]) ApplyPtr(cur *T) *T {
	switch f.op {
	case FieldSet:
		v := f.value
		return &v
	case FieldClear:
		return nil
	default:
		return cur
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}
