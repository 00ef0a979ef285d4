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

// Package intent groups templates into named intents and parses
// utterances against a whole set of them.
package intent

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"strconv"

	"github.com/Comcast/voxmatch/core"
	"github.com/Comcast/voxmatch/match"
	"github.com/Comcast/voxmatch/vocab"

	"github.com/jsccast/yaml"
)

// NotCompiled occurs when a Set is used before it has been
// Compile()ed.
var NotCompiled = errors.New("intent set not compiled")

// Example is an utterance that should be recognized as its intent
// with the given slots and parameters.
type Example struct {
	Utterance  string            `json:"utterance" yaml:"utterance"`
	Slots      map[string]string `json:"slots,omitempty" yaml:"slots,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Intent is a named set of templates (phrases) that all mean the
// same thing.
type Intent struct {
	Name string `json:"name" yaml:"name"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Phrases are templates.  They are tried in order.
	Phrases []string `json:"phrases" yaml:"phrases"`

	Examples []Example `json:"examples,omitempty" yaml:"examples,omitempty"`

	// ActionSource, if given, is compiled to Action.
	ActionSource *ActionSource `json:"action,omitempty" yaml:"action,omitempty"`

	Action Action `json:"-" yaml:"-"`

	prepared []*match.Prepared
}

// Compiled returns the compiled phrases.  Nil before the Set is
// compiled.
func (i *Intent) Compiled() []*core.Matcher {
	if i.prepared == nil {
		return nil
	}
	acc := make([]*core.Matcher, len(i.prepared))
	for j, p := range i.prepared {
		acc[j] = p.Matcher
	}
	return acc
}

// PhraseError reports a phrase that didn't compile.
type PhraseError struct {
	Intent string
	Phrase int
	Err    error
}

func (e *PhraseError) Error() string {
	return `intent "` + e.Intent + `" phrase ` + strconv.Itoa(e.Phrase) + ": " + e.Err.Error()
}

func (e *PhraseError) Unwrap() error {
	return e.Err
}

// BadIntent occurs for an intent with no name or a name that's
// already taken.
type BadIntent struct {
	Name string
	Msg  string
}

func (e *BadIntent) Error() string {
	return `intent "` + e.Name + `": ` + e.Msg
}

// Set is an ordered collection of intents.
type Set struct {
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Doc     string    `json:"doc,omitempty" yaml:"doc,omitempty"`
	Intents []*Intent `json:"intents" yaml:"intents"`

	// Matcher controls utterance matching.  Defaults to
	// match.DefaultMatcher.
	Matcher *match.Matcher `json:"-" yaml:"-"`

	compiled bool
}

// Compile compiles every phrase of every intent against the given
// vocabulary and compiles any ActionSources.
//
// Either everything compiles or the Set is left as it was.
func (s *Set) Compile(ctx context.Context, v vocab.Vocabulary, interpreters map[string]Interpreter) error {
	if s.Matcher == nil {
		s.Matcher = match.DefaultMatcher
	}

	var (
		compiler = core.NewCompiler(v)
		names    = make(map[string]bool, len(s.Intents))
		prepared = make([][]*match.Prepared, len(s.Intents))
		actions  = make([]Action, len(s.Intents))
	)

	for i, in := range s.Intents {
		if in == nil {
			return &BadIntent{Msg: fmt.Sprintf("intent %d is empty", i)}
		}
		if in.Name == "" {
			return &BadIntent{Msg: fmt.Sprintf("intent %d has no name", i)}
		}
		if names[in.Name] {
			return &BadIntent{Name: in.Name, Msg: "declared more than once"}
		}
		names[in.Name] = true

		ps := make([]*match.Prepared, 0, len(in.Phrases))
		for j, phrase := range in.Phrases {
			cm, err := compiler.Compile(phrase)
			if err != nil {
				return &PhraseError{Intent: in.Name, Phrase: j, Err: err}
			}
			p, err := s.Matcher.Prepare(cm)
			if err != nil {
				return &PhraseError{Intent: in.Name, Phrase: j, Err: err}
			}
			ps = append(ps, p)
		}
		prepared[i] = ps

		actions[i] = in.Action
		if in.ActionSource != nil {
			action, err := in.ActionSource.Compile(ctx, interpreters)
			if err != nil {
				return fmt.Errorf("intent %q action: %w", in.Name, err)
			}
			actions[i] = action
		}
	}

	for i, in := range s.Intents {
		in.prepared = prepared[i]
		in.Action = actions[i]
	}
	s.compiled = true

	return nil
}

// IsCompiled reports whether Compile has succeeded.
func (s *Set) IsCompiled() bool {
	return s.compiled
}

// Find returns the intent with the given name or nil.
func (s *Set) Find(name string) *Intent {
	for _, in := range s.Intents {
		if in.Name == name {
			return in
		}
	}
	return nil
}

// Parsed is an utterance recognized as an intent.
type Parsed struct {
	Intent string `json:"intent"`

	// Phrase is the index of the phrase that matched.
	Phrase int `json:"phrase"`

	*match.Result
}

// Parse finds the first intent (in declaration order) with a phrase
// that matches the utterance.  Returns nil (and no error) when
// nothing matches.
func (s *Set) Parse(utterance string) (*Parsed, error) {
	if !s.compiled {
		return nil, NotCompiled
	}
	for _, in := range s.Intents {
		for j, p := range in.prepared {
			r, err := p.Match(utterance)
			if err != nil {
				return nil, err
			}
			if r != nil {
				return &Parsed{
					Intent: in.Name,
					Phrase: j,
					Result: r,
				}, nil
			}
		}
	}
	return nil, nil
}

// Act runs the action of the parsed intent.  An intent without an
// action returns its bindings.
func (s *Set) Act(ctx context.Context, p *Parsed) (*Execution, error) {
	if !s.compiled {
		return nil, NotCompiled
	}
	in := s.Find(p.Intent)
	if in == nil {
		return nil, &BadIntent{Name: p.Intent, Msg: "not found"}
	}
	env := &Env{
		Intent:     p.Intent,
		Utterance:  p.Utterance,
		Slots:      p.Slots.Copy(),
		SlotTypes:  p.SlotTypes,
		Parameters: p.Parameters,
	}
	if in.Action == nil {
		return NewExecution(env.Bindings()), nil
	}
	return in.Action.Exec(ctx, env)
}

// Parse reads a Set from YAML (or JSON).  The Set isn't compiled.
func Parse(bs []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadFile reads a Set file.  See Parse.
func ReadFile(filename string) (*Set, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(bs)
}
