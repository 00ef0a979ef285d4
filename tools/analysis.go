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

package tools

import (
	"sort"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/vocab"
)

// Analysis summarizes a compiled Set.
type Analysis struct {
	Intents    int `json:"intents"`
	Phrases    int `json:"phrases"`
	Examples   int `json:"examples"`
	Actions    int `json:"actions"`
	TypedSlots int `json:"typedSlots"`

	// EntityTypesUsed are the entity types that some typed slot
	// uses.
	EntityTypesUsed []string `json:"entityTypesUsed"`

	// EntityTypesUnused are the vocabulary's entity types that no
	// typed slot uses.
	EntityTypesUnused []string `json:"entityTypesUnused"`

	// WithoutExamples are intents that have no examples.
	WithoutExamples []string `json:"withoutExamples"`

	// Shadowed are examples that parse as some other intent.
	Shadowed []*ExampleFailure `json:"shadowed"`

	Interpreters []string `json:"interpreters"`
}

// Typed is a vocabulary that can list its entity types.
type Typed interface {
	vocab.Vocabulary
	Types() []string
}

// Analyze looks at a compiled Set.  If the vocabulary can list its
// types (like a vocab.Map), the analysis includes the unused ones.
func Analyze(s *intent.Set, v vocab.Vocabulary) (*Analysis, error) {
	a := Analysis{
		Intents: len(s.Intents),
	}

	used, interpreters := make(map[string]bool), make(map[string]bool)

	for _, in := range s.Intents {
		a.Phrases += len(in.Phrases)
		a.Examples += len(in.Examples)
		if len(in.Examples) == 0 {
			a.WithoutExamples = append(a.WithoutExamples, in.Name)
		}
		if in.ActionSource != nil || in.Action != nil {
			a.Actions++
		}
		if in.ActionSource != nil {
			interpreters[in.ActionSource.Interpreter] = true
		}
		for _, m := range in.Compiled() {
			for _, typ := range m.SlotTypes {
				a.TypedSlots++
				used[typ] = true
			}
		}
	}

	a.EntityTypesUsed = keysToStringSlice(used)
	a.Interpreters = keysToStringSlice(interpreters)

	if t, is := v.(Typed); is {
		for _, typ := range t.Types() {
			if !used[typ] {
				a.EntityTypesUnused = append(a.EntityTypesUnused, typ)
			}
		}
	}

	fails, err := CheckExamples(s)
	if err != nil {
		return nil, err
	}
	for _, f := range fails {
		if f.Got != "" {
			a.Shadowed = append(a.Shadowed, f)
		}
	}

	return &a, nil
}

// keysToStringSlice returns the sorted keys.
func keysToStringSlice(m map[string]bool) []string {
	list := make([]string, 0, len(m))
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
