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
	"fmt"
	"sort"
	"strings"

	"github.com/Comcast/voxmatch/intent"
)

// ExampleFailure describes an Example that didn't parse the way its
// intent says it should.
type ExampleFailure struct {
	Intent    string `json:"intent"`
	Utterance string `json:"utterance"`

	// Got is the intent that actually matched, if any.
	Got string `json:"got,omitempty"`

	Problems []string `json:"problems"`
}

func (f *ExampleFailure) String() string {
	return fmt.Sprintf("%s: %q: %s", f.Intent, f.Utterance, strings.Join(f.Problems, "; "))
}

// CheckExamples parses every Example of every intent and reports the
// ones that don't come back as their own intent with their declared
// slots and parameters.
//
// Slots and parameters that an Example doesn't mention aren't
// checked.
//
// The Set must be compiled.
func CheckExamples(s *intent.Set) ([]*ExampleFailure, error) {
	var acc []*ExampleFailure
	for _, in := range s.Intents {
		for _, ex := range in.Examples {
			p, err := s.Parse(ex.Utterance)
			if err != nil {
				return nil, err
			}
			fail := &ExampleFailure{
				Intent:    in.Name,
				Utterance: ex.Utterance,
			}
			switch {
			case p == nil:
				fail.Problems = append(fail.Problems, "no match")
			case p.Intent != in.Name:
				fail.Got = p.Intent
				fail.Problems = append(fail.Problems, "matched "+p.Intent)
			default:
				fail.Problems = append(fail.Problems, diffBindings("slot", ex.Slots, p.Slots)...)
				fail.Problems = append(fail.Problems, diffBindings("parameter", ex.Parameters, p.Parameters)...)
			}
			if 0 < len(fail.Problems) {
				acc = append(acc, fail)
			}
		}
	}
	return acc, nil
}

func diffBindings(what string, want, got map[string]string) []string {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var acc []string
	for _, name := range names {
		v, have := got[name]
		if !have {
			acc = append(acc, fmt.Sprintf("no %s %s", what, name))
			continue
		}
		if v != want[name] {
			acc = append(acc, fmt.Sprintf("%s %s is %q, not %q", what, name, v, want[name]))
		}
	}
	return acc
}
