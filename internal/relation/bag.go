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

import "sort"

// Bag is one side of a relation databag: a flat, ordered, string-keyed
// store owned by the host orchestrator. The binding layer only ever
// holds a reference; it never owns the storage.
type Bag interface {
	// Contains reports whether key is present.
	Contains(key string) bool

	// Get returns the raw string stored under key.
	Get(key string) (string, bool)

	// Set stores value under key. Implementations backed by hook tools
	// may refuse the write, for example when the unit lacks authority
	// over an application-wide bag; the binding layer attempts the
	// write unconditionally and reports the refusal to its caller.
	Set(key, value string) error

	// Keys returns all present keys in insertion order.
	Keys() []string
}

// MapBag is an in-memory Bag that preserves insertion order. It backs
// fresh databags, action parameters and tests.
type MapBag struct {
	order  []string
	values map[string]string
}

// NewMapBag returns an empty MapBag.
func NewMapBag() *MapBag {
	return &MapBag{values: make(map[string]string)}
}

// MapBagFrom returns a MapBag seeded with pairs, keyed in sorted order
// so the snapshot is deterministic.
func MapBagFrom(pairs map[string]string) *MapBag {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := NewMapBag()
	for _, k := range keys {
		_ = b.Set(k, pairs[k])
	}
	return b
}

// Contains reports whether key is present.
func (b *MapBag) Contains(key string) bool {
	_, ok := b.values[key]
	return ok
}

// Get returns the raw string stored under key.
func (b *MapBag) Get(key string) (string, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Set stores value under key. It never fails.
func (b *MapBag) Set(key, value string) error {
	if _, ok := b.values[key]; !ok {
		b.order = append(b.order, key)
	}
	b.values[key] = value
	return nil
}

// Keys returns all present keys in insertion order.
func (b *MapBag) Keys() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Len returns the number of stored keys.
func (b *MapBag) Len() int {
	return len(b.values)
}
