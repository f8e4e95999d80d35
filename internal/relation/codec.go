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
	"encoding/json"
	"fmt"
	"strings"

	"sigs.k8s.io/yaml"
)

// Codec is the structured text encoding used to serialize non-scalar
// field values into databag strings. A record type's codec is fixed at
// schema construction and must be used consistently on both sides of a
// relation: the two encodings are not drop-in compatible, particularly
// for ambiguous scalars.
type Codec interface {
	// Name identifies the encoding in error messages.
	Name() string

	// Encode renders v as databag text.
	Encode(v any) (string, error)

	// Decode parses databag text into maps, slices, strings, numbers
	// and booleans. Mappings always come back string-keyed.
	Decode(text string) (any, error)
}

// JSON is the compact machine-oriented encoding and the default for
// new schemas.
var JSON Codec = jsonCodec{}

// YAML is the human-readable encoding.
var YAML Codec = yamlCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding as json: %w", err)
	}
	return string(b), nil
}

func (jsonCodec) Decode(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return v, nil
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Encode(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding as yaml: %w", err)
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

func (yamlCodec) Decode(text string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return v, nil
}
