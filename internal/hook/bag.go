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

package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmkit/hello-kubecon/internal/relation"
)

// relationBag is one side of a relation databag backed by the
// relation-get and relation-set hook tools. The snapshot is taken once
// when the bag is built; writes go through relation-set and update the
// snapshot in place, so reads after writes stay consistent for the
// rest of the event. The agent enforces write authority (a non-leader
// writing an application bag is refused), which surfaces here as a Set
// error.
type relationBag struct {
	*relation.MapBag

	runner     Runner
	ctx        context.Context
	relationID string
	app        bool
}

// newRelationBag snapshots one databag side. member is the unit or
// application whose data to read; app selects the application-wide
// bag. The snapshot preserves the key order of the tool's JSON output.
func newRelationBag(ctx context.Context, runner Runner, relationID, member string, app bool) (*relationBag, error) {
	args := []string{"--format=json", "-r", relationID, "-", member}
	if app {
		args = append(args, "--app")
	}
	out, err := runner.Run(ctx, "relation-get", args...)
	if err != nil {
		return nil, fmt.Errorf("reading relation %s data for %s: %w", relationID, member, err)
	}

	snapshot, err := decodeStringBag(out)
	if err != nil {
		return nil, fmt.Errorf("relation %s data for %s: %w", relationID, member, err)
	}
	return &relationBag{
		MapBag:     snapshot,
		runner:     runner,
		ctx:        ctx,
		relationID: relationID,
		app:        app,
	}, nil
}

// Set writes one key through relation-set and, on success, updates the
// local snapshot. The write is attempted unconditionally; whether this
// unit may write the bag is the agent's call, not ours.
func (b *relationBag) Set(key, value string) error {
	args := []string{"-r", b.relationID}
	if b.app {
		args = append(args, "--app")
	}
	args = append(args, key+"="+value)
	if _, err := b.runner.Run(b.ctx, "relation-set", args...); err != nil {
		return err
	}
	return b.MapBag.Set(key, value)
}

// decodeStringBag parses a hook tool's JSON object output into an
// ordered string bag. Values arrive typed (config-get returns bools
// and numbers, action-get may nest structures); everything is reduced
// to the databag string form: strings verbatim, numbers and bools as
// their literals, structured values as compact JSON text. Null values
// count as absent.
func decodeStringBag(data []byte) (*relation.MapBag, error) {
	bag := relation.NewMapBag()
	if len(bytes.TrimSpace(data)) == 0 {
		return bag, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding tool output: %w", err)
	}
	if tok == nil {
		return bag, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decoding tool output: expected an object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding tool output: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding tool output: expected a key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding value for %q: %w", key, err)
		}
		value, present, err := stringifyJSONValue(raw)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		if !present {
			continue
		}
		_ = bag.Set(key, value)
	}
	return bag, nil
}

// stringifyJSONValue reduces one JSON value to databag text. present
// is false for JSON null.
func stringifyJSONValue(raw json.RawMessage) (value string, present bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return "", false, err
		}
		return compact.String(), true, nil
	default:
		// Numbers and bools keep their literal form.
		return string(trimmed), true, nil
	}
}
