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
	"math"
	"reflect"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Kind identifies the declared type of a record field. The set is
// closed: values outside it cannot be serialized into a databag.
type Kind int

const (
	// KindString fields hold free-form text and round-trip verbatim.
	KindString Kind = iota + 1

	// KindInt fields hold signed integers serialized in decimal.
	KindInt

	// KindFloat fields hold IEEE 754 doubles serialized in the
	// shortest decimal form that round-trips.
	KindFloat

	// KindObject fields hold string-keyed mappings, optionally shaped
	// into a nested record by a field list.
	KindObject

	// KindList fields hold sequences, optionally constrained by an
	// element descriptor.
	KindList
)

// String returns the kind name used in validation messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k >= KindString && k <= KindList
}

// Field declares one record field. Names use underscore-separated
// tokens in code; the databag key is the name with every underscore
// replaced by a hyphen, which keeps the transform reversible as long
// as declared names never contain hyphens themselves.
type Field struct {
	// Name is the declared field name, for example "service_hostname".
	Name string

	// Kind is the declared value type.
	Kind Kind

	// Required marks the field as mandatory both when constructing a
	// record and when reading one from a bag.
	Required bool

	// Default is applied when the field is absent. Defaults are not
	// type-checked at declaration time; an unusable default surfaces
	// on first use like any other bad value.
	Default any

	// Fields shapes the mapping held by an Object field into a nested
	// record. Empty means the mapping is free-form. Nested names are
	// stored verbatim inside the structured encoding; the hyphen
	// transform applies to top-level keys only.
	Fields []Field

	// Elem constrains every element of a List field. The element
	// descriptor's Name is ignored; elements are addressed by index.
	Elem *Field

	// Validate applies an extra rule after the kind check passes.
	Validate func(path *field.Path, value any) *field.Error
}

// Key returns the databag key for the field.
func (f Field) Key() string {
	return strings.ReplaceAll(f.Name, "_", "-")
}

// normalize coerces value into the canonical in-memory shape for the
// field's kind (string, int64, float64, map[string]any or []any) and
// runs the custom validator. It checks declared structure only; leaf
// values it has no declaration for pass through untouched and any
// unserializable leaf surfaces later, at encoding time.
func (f Field) normalize(path *field.Path, value any) (any, *field.Error) {
	var (
		out any
		ok  bool
	)

	switch f.Kind {
	case KindString:
		out, ok = value.(string)
		if !ok {
			return nil, field.Invalid(path, value, fmt.Sprintf("must be a string, got %T", value))
		}
	case KindInt:
		out, ok = coerceInt(value)
		if !ok {
			return nil, field.Invalid(path, value, fmt.Sprintf("must be an integer, got %T", value))
		}
	case KindFloat:
		out, ok = coerceFloat(value)
		if !ok {
			return nil, field.Invalid(path, value, fmt.Sprintf("must be a number, got %T", value))
		}
	case KindObject:
		m, mok := toStringKeyedMap(value)
		if !mok {
			return nil, field.Invalid(path, value, fmt.Sprintf("must be a string-keyed mapping, got %T", value))
		}
		if len(f.Fields) > 0 {
			for _, sub := range f.Fields {
				subPath := path.Child(sub.Name)
				v, present := m[sub.Name]
				if !present {
					if sub.Default != nil {
						v = sub.Default
					} else if sub.Required {
						return nil, field.Required(subPath, "")
					} else {
						continue
					}
				}
				nv, ferr := sub.normalize(subPath, v)
				if ferr != nil {
					return nil, ferr
				}
				m[sub.Name] = nv
			}
		}
		out = m
	case KindList:
		s, sok := toSlice(value)
		if !sok {
			return nil, field.Invalid(path, value, fmt.Sprintf("must be a sequence, got %T", value))
		}
		if f.Elem != nil {
			for i, v := range s {
				nv, ferr := f.Elem.normalize(path.Index(i), v)
				if ferr != nil {
					return nil, ferr
				}
				s[i] = nv
			}
		}
		out = s
	default:
		return nil, field.InternalError(path, fmt.Errorf("field declared with invalid kind %d", int(f.Kind)))
	}

	if f.Validate != nil {
		if ferr := f.Validate(path, out); ferr != nil {
			return nil, ferr
		}
	}
	return out, nil
}

// decode turns the raw databag string into the field's in-memory
// value. String and integer fields take the bare string; every other
// kind is parsed with the schema codec first.
func (f Field) decode(codec Codec, path *field.Path, raw string) (any, *field.Error) {
	switch f.Kind {
	case KindString:
		return f.normalize(path, raw)
	case KindInt:
		n, ok := parseInt(raw)
		if !ok {
			return nil, field.Invalid(path, raw, "must be a decimal integer")
		}
		return f.normalize(path, n)
	default:
		v, err := codec.Decode(raw)
		if err != nil {
			return nil, field.Invalid(path, raw, fmt.Sprintf("not valid %s: %v", codec.Name(), err))
		}
		return f.normalize(path, v)
	}
}

func parseInt(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func coerceInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return integralFloat(float64(v))
	case float64:
		// Structured decoding yields float64 for every number, so an
		// integral double counts as an integer here.
		return integralFloat(v)
	default:
		return 0, false
	}
}

func integralFloat(v float64) (int64, bool) {
	if math.Trunc(v) != v || v < math.MinInt64 || v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		if n, ok := coerceInt(value); ok {
			return float64(n), true
		}
		return 0, false
	}
}

func toStringKeyedMap(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func toSlice(value any) ([]any, bool) {
	if s, ok := value.([]any); ok {
		out := make([]any, len(s))
		copy(out, s)
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
