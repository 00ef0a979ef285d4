/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package vocab provides entity vocabularies: closed lists of
// literal phrases, keyed by entity type, that typed template slots
// are allowed to match.
package vocab

import (
	"context"
	"sort"
)

// Vocabulary maps an entity type to its ordered list of phrases.
//
// The order of the phrases matters: a compiled template tries them
// in that order.  An empty phrase means the slot may match nothing.
//
// Implementations must be safe for concurrent reads.  The template
// compiler never modifies a Vocabulary.
type Vocabulary interface {
	// Lookup returns the phrases for the given entity type.  The
	// returned slice must not be modified.
	Lookup(entityType string) ([]string, bool)
}

// Map is the plain Vocabulary.
type Map map[string][]string

// Lookup implements Vocabulary.
func (m Map) Lookup(entityType string) ([]string, bool) {
	phrases, have := m[entityType]
	return phrases, have
}

// Types returns the entity types in sorted order.
func (m Map) Types() []string {
	acc := make([]string, 0, len(m))
	for t := range m {
		acc = append(acc, t)
	}
	sort.Strings(acc)
	return acc
}

// Copy makes a deep copy of the Map.
func (m Map) Copy() Map {
	acc := make(Map, len(m))
	for t, phrases := range m {
		acc[t] = append([]string(nil), phrases...)
	}
	return acc
}

// Merge returns a new Map containing the entity types of all the
// given maps.  An entity type in a later map replaces the whole
// phrase list of an earlier one.
func Merge(ms ...Map) Map {
	acc := make(Map)
	for _, m := range ms {
		for t, phrases := range m {
			acc[t] = append([]string(nil), phrases...)
		}
	}
	return acc
}

// Store is a persistent, mutable source of vocabularies.
//
// Compilation never reads a Store directly.  Take a Snapshot and
// compile against that.
type Store interface {
	Put(ctx context.Context, entityType string, phrases []string) error

	// Get returns nil phrases (and no error) for an unknown
	// entity type.
	Get(ctx context.Context, entityType string) ([]string, error)

	Remove(ctx context.Context, entityType string) error

	Snapshot(ctx context.Context) (Map, error)
}
