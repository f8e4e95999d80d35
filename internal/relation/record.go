/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package relation

import (
	"fmt"
	"reflect"
	"strconv"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Record is a typed instance of a Schema. It lives unbound, as plain
// in-memory state, until Bind attaches it to a databag; from then on
// every successful mutation writes through to the bag synchronously
// until Unbind. A record holds at most one bag reference at a time.
type Record struct {
	schema *Schema
	values map[string]any
	bag    Bag
}

// Schema returns the record's type.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Bound reports whether the record currently writes through to a bag.
func (r *Record) Bound() bool {
	return r.bag != nil
}

// Get returns the value held for the declared field name. Absent
// optional fields report ok false.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// String returns the string field name, or "" when absent.
func (r *Record) String(name string) string {
	v, _ := r.values[name].(string)
	return v
}

// Int returns the integer field name, or 0 when absent.
func (r *Record) Int(name string) int64 {
	v, _ := r.values[name].(int64)
	return v
}

// Float returns the float field name, or 0 when absent.
func (r *Record) Float(name string) float64 {
	v, _ := r.values[name].(float64)
	return v
}

// Object returns the mapping field name, or nil when absent.
func (r *Record) Object(name string) map[string]any {
	v, _ := r.values[name].(map[string]any)
	return v
}

// List returns the sequence field name, or nil when absent.
func (r *Record) List(name string) []any {
	v, _ := r.values[name].([]any)
	return v
}

// Values returns a copy of the held values keyed by declared name.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Set validates value against the field declaration and stores it.
// While the record is bound the new value is serialized and written to
// the bag before Set returns; unbound records mutate in memory only.
// A validation failure leaves both the record and the bag untouched.
func (r *Record) Set(name string, value any) error {
	f, ok := r.schema.Field(name)
	if !ok {
		return fmt.Errorf("%s: %w: %q", r.schema.name, ErrUnknownField, name)
	}

	normalized, ferr := f.normalize(field.NewPath(name), value)
	if ferr != nil {
		return ferr
	}
	r.values[name] = normalized

	if r.bag == nil {
		return nil
	}
	return r.writeField(r.bag, f, normalized)
}

// Bind attaches bag to the record and immediately flushes every held
// field, so the bag fully reflects the record's state at bind time and
// not only future mutations. Rebinding replaces any previous bag; it
// never merges. A flush failure leaves the record bound, with the
// failing field reported.
func (r *Record) Bind(bag Bag) error {
	r.bag = bag
	return r.writeTo(bag)
}

// Unbind detaches the record from its bag, stopping write-through, and
// returns the record for chaining.
func (r *Record) Unbind() *Record {
	r.bag = nil
	return r
}

// Write flushes every held field into bag without binding to it.
func (r *Record) Write(bag Bag) error {
	return r.writeTo(bag)
}

func (r *Record) writeTo(bag Bag) error {
	for _, f := range r.schema.fields {
		value, ok := r.values[f.Name]
		if !ok {
			continue
		}
		if err := r.writeField(bag, f, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) writeField(bag Bag, f Field, value any) error {
	text, err := r.serialize(f, value)
	if err != nil {
		return err
	}
	if err := bag.Set(f.Key(), text); err != nil {
		return fmt.Errorf("writing %q: %w", f.Key(), err)
	}
	return nil
}

// serialize renders one held value as databag text: scalars with a
// plain string conversion, everything else through the schema codec.
// A value the codec cannot encode fails with UnserializableTypeError,
// on the first bind or mutation touching the field rather than at
// declaration.
func (r *Record) serialize(f Field, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		text, err := r.schema.codec.Encode(value)
		if err != nil {
			return "", &UnserializableTypeError{
				Schema: r.schema.name,
				Field:  f.Name,
				Type:   reflect.TypeOf(value),
				err:    err,
			}
		}
		return text, nil
	}
}
