package relation

import (
	"errors"
	"fmt"
	"reflect"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

var (
	// ErrUnknownField is returned when a value is assigned to a field
	// the schema does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrNotBound is returned by operations that need an attached bag
	// on a record that has none.
	ErrNotBound = errors.New("record is not bound to a databag")
)

// ValidationError aggregates every violation found while constructing
// a record or reading one from a bag. It is data, not a programming
// error: handlers receive it through a ReadResult and decide policy,
// and nothing in the binding layer ever panics on it.
type ValidationError struct {
	// Schema names the record type that failed validation.
	Schema string

	// Errors lists each violation with its field path.
	Errors field.ErrorList
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Schema, e.Errors.ToAggregate())
}

// Unwrap exposes the aggregate so callers can match individual causes
// with errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Errors.ToAggregate()
}

// UnserializableTypeError reports a field value the schema codec
// cannot encode. Unlike a ValidationError it indicates a programming
// error in the record-type declaration or the assigned value, so it
// surfaces at serialization time as a fatal error for the event and
// is never converted into result data.
type UnserializableTypeError struct {
	// Schema and Field locate the offending declaration.
	Schema string
	Field  string

	// Type is the Go type of the value that failed to encode.
	Type reflect.Type

	err error
}

func (e *UnserializableTypeError) Error() string {
	return fmt.Sprintf("field %s.%s of type %s is not serializable: %v", e.Schema, e.Field, e.Type, e.err)
}

func (e *UnserializableTypeError) Unwrap() error {
	return e.err
}
