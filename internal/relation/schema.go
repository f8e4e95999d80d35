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

// Package relation maps typed, validated records onto the flat
// string-keyed databags shared across a relation. A Schema declares a
// record type once; records constructed from it can be read out of a
// bag, bound to one for synchronous write-through, or written in a
// single flush. Validation failures travel as values so event handlers
// always run, even on malformed peer data.
package relation

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Rule is a record-level constraint evaluated after every field-level
// rule, with the normalized values keyed by declared field name. Rules
// must tolerate absent keys: they also run when individual fields have
// already failed.
type Rule func(values map[string]any) field.ErrorList

// Option configures schema construction.
type Option func(*Schema)

// WithRule adds a record-level constraint, for cross-field checks that
// no single field can express.
func WithRule(r Rule) Option {
	return func(s *Schema) {
		s.rules = append(s.rules, r)
	}
}

// Schema declares a record type: an ordered field set, the structured
// encoding for non-scalar fields, and record-level rules. A Schema is
// immutable once constructed and safe for concurrent use.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
	codec  Codec
	rules  []Rule
}

// NewSchema builds a record type from its field declarations. It fails
// when a declared name is empty, contains a hyphen, or repeats: the
// underscore-to-hyphen key transform must stay injective over the
// field set. Field defaults are not type-checked here; a bad default
// surfaces on first use.
func NewSchema(name string, fields []Field, opts ...Option) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name must not be empty")
	}

	s := &Schema{
		name:   name,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
		codec:  JSON,
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		if err := checkField(f, true); err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %q: duplicate field %q", name, f.Name)
		}
		s.index[f.Name] = i
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustSchema is NewSchema for package-level declarations; it panics on
// a bad declaration, which the first test touching the package catches.
func MustSchema(name string, fields []Field, opts ...Option) *Schema {
	s, err := NewSchema(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// checkField validates one declaration. named is false for list
// element descriptors, which are addressed by index and need no name.
func checkField(f Field, named bool) error {
	if named {
		if f.Name == "" {
			return fmt.Errorf("field name must not be empty")
		}
		if strings.Contains(f.Name, "-") {
			return fmt.Errorf("field %q: names use underscores, not hyphens", f.Name)
		}
	}
	if !f.Kind.valid() {
		return fmt.Errorf("field %q: invalid kind %d", f.Name, int(f.Kind))
	}

	seen := make(map[string]bool, len(f.Fields))
	for _, sub := range f.Fields {
		if err := checkField(sub, true); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if seen[sub.Name] {
			return fmt.Errorf("field %q: duplicate field %q", f.Name, sub.Name)
		}
		seen[sub.Name] = true
	}
	if f.Elem != nil {
		if err := checkField(*f.Elem, false); err != nil {
			return fmt.Errorf("field %q element: %w", f.Name, err)
		}
	}
	return nil
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Codec returns the structured encoding non-scalar fields use.
func (s *Schema) Codec() Codec {
	return s.codec
}

// WithCodec derives a schema sharing this schema's fields and rules
// but encoding structured values with c. The receiver is unchanged, so
// backend choice stays per record type with no shared mutable state.
func (s *Schema) WithCodec(c Codec) *Schema {
	clone := *s
	clone.codec = c
	return &clone
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// New constructs an unbound record from values keyed by declared field
// name. Absent optional fields take their defaults, absent required
// fields and unknown names are violations, and every violation in the
// input is reported in a single aggregate.
func (s *Schema) New(values map[string]any) (*Record, *ValidationError) {
	var allErrs field.ErrorList
	held := make(map[string]any, len(s.fields))

	for _, f := range s.fields {
		path := field.NewPath(f.Name)
		value, ok := values[f.Name]
		if !ok {
			if f.Default != nil {
				value = f.Default
			} else if f.Required {
				allErrs = append(allErrs, field.Required(path, ""))
				continue
			} else {
				continue
			}
		}
		normalized, ferr := f.normalize(path, value)
		if ferr != nil {
			allErrs = append(allErrs, ferr)
			continue
		}
		held[f.Name] = normalized
	}

	for name := range values {
		if _, ok := s.index[name]; !ok {
			allErrs = append(allErrs, field.Invalid(field.NewPath(name), name, "field is not declared by the schema"))
		}
	}

	allErrs = append(allErrs, s.applyRules(held)...)

	if len(allErrs) > 0 {
		return nil, &ValidationError{Schema: s.name, Errors: allErrs}
	}
	return &Record{schema: s, values: held}, nil
}

// Read parses bag into a record. String and integer fields take the
// raw databag string as-is; every other kind decodes the raw string
// with the schema codec. Keys absent from the bag fall back to the
// declared default, and bag keys the schema does not declare are
// ignored: bags may carry data for other consumers. The returned
// record is unbound; call Bind to attach it for write-through.
func (s *Schema) Read(bag Bag) ReadResult {
	var allErrs field.ErrorList
	held := make(map[string]any, len(s.fields))

	for _, f := range s.fields {
		path := field.NewPath(f.Name)

		raw, ok := bag.Get(f.Key())
		if !ok {
			if f.Default != nil {
				normalized, ferr := f.normalize(path, f.Default)
				if ferr != nil {
					allErrs = append(allErrs, ferr)
					continue
				}
				held[f.Name] = normalized
			} else if f.Required {
				allErrs = append(allErrs, field.Required(path, ""))
			}
			continue
		}

		value, ferr := f.decode(s.codec, path, raw)
		if ferr != nil {
			allErrs = append(allErrs, ferr)
			continue
		}
		held[f.Name] = value
	}

	allErrs = append(allErrs, s.applyRules(held)...)

	if len(allErrs) > 0 {
		return InvalidResult(&ValidationError{Schema: s.name, Errors: allErrs})
	}
	return RecordResult(&Record{schema: s, values: held})
}

func (s *Schema) applyRules(values map[string]any) field.ErrorList {
	var allErrs field.ErrorList
	for _, rule := range s.rules {
		allErrs = append(allErrs, rule(values)...)
	}
	return allErrs
}
