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

// Package match applies compiled templates to utterances.
package match

import (
	"strings"
	"time"

	"github.com/Comcast/voxmatch/core"

	"github.com/dlclark/regexp2"
)

// Matcher holds the switches that control how utterances are
// prepared and matched.
type Matcher struct {
	// IgnoreCase makes matching case-insensitive.
	IgnoreCase bool

	// CollapseSpace replaces every run of whitespace in an
	// utterance with a single space before matching.
	//
	// Compiled patterns separate words with exactly one space, so
	// without this switch "turn  it up" won't match "turn it up".
	CollapseSpace bool

	// Timeout, if not zero, bounds the time spent on one match.
	// An untyped slot can backtrack quite a bit on long input.
	Timeout time.Duration
}

var DefaultMatcher = &Matcher{
	IgnoreCase:    true,
	CollapseSpace: true,
}

// Bindings is a map from slot names to the text they matched.
type Bindings map[string]string

func NewBindings() Bindings {
	return make(Bindings, 4)
}

// Extend adds the binding; modifies and returns the Bindings.
func (bs Bindings) Extend(slot, value string) Bindings {
	bs[slot] = value
	return bs
}

// Remove removes the given slots.
//
// The Bindings are modified.
func (bs Bindings) Remove(slots ...string) Bindings {
	for _, slot := range slots {
		delete(bs, slot)
	}
	return bs
}

// DeleteExcept removes all but the given slots.
//
// Does not copy.
func (bs Bindings) DeleteExcept(keeps ...string) Bindings {
REM:
	for slot := range bs {
		for _, keep := range keeps {
			if keep == slot {
				continue REM
			}
		}
		delete(bs, slot)
	}
	return bs
}

// Copy makes a copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// Result is a successful match.
type Result struct {
	Template string `json:"template"`

	// Utterance is the utterance after normalization.
	Utterance string `json:"utterance"`

	// Slots has one binding for every slot in the template.
	Slots Bindings `json:"slots"`

	SlotTypes  map[string]string `json:"slotTypes,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Prepared is a compiled template together with its compiled
// regular expression.
//
// A Prepared can be used from multiple goroutines.
type Prepared struct {
	Matcher *core.Matcher

	m  *Matcher
	re *regexp2.Regexp
}

// Prepare compiles the template's pattern.
func (m *Matcher) Prepare(cm *core.Matcher) (*Prepared, error) {
	opts := regexp2.None
	if m.IgnoreCase {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(`\A(?:`+cm.Pattern+`)\z`, opts)
	if err != nil {
		return nil, &core.InvalidPattern{
			Pattern:  cm.Pattern,
			Template: cm.Template,
			Err:      err,
		}
	}
	if 0 < m.Timeout {
		re.MatchTimeout = m.Timeout
	}
	return &Prepared{
		Matcher: cm,
		m:       m,
		re:      re,
	}, nil
}

// Normalize trims the utterance and (if CollapseSpace) collapses
// internal whitespace.
func (m *Matcher) Normalize(utterance string) string {
	if m.CollapseSpace {
		return strings.Join(strings.Fields(utterance), " ")
	}
	return strings.TrimSpace(utterance)
}

// Match returns nil (and no error) if the utterance doesn't match.
//
// The only possible error is a timeout.
func (p *Prepared) Match(utterance string) (*Result, error) {
	utterance = p.m.Normalize(utterance)

	subject := utterance
	if subject != "" {
		subject = " " + subject
	}

	found, err := p.re.FindStringMatch(subject)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}

	bs := NewBindings()
	for i, slot := range p.Matcher.Slots {
		g := found.GroupByNumber(i + 1)
		if g == nil {
			bs.Extend(slot, "")
			continue
		}
		bs.Extend(slot, strings.TrimPrefix(g.String(), " "))
	}

	return &Result{
		Template:   p.Matcher.Template,
		Utterance:  utterance,
		Slots:      bs,
		SlotTypes:  p.Matcher.SlotTypes,
		Parameters: p.Matcher.Parameters,
	}, nil
}

// Match prepares the template with the DefaultMatcher and matches the
// utterance.  Use Prepare when matching more than once.
func Match(cm *core.Matcher, utterance string) (*Result, error) {
	p, err := DefaultMatcher.Prepare(cm)
	if err != nil {
		return nil, err
	}
	return p.Match(utterance)
}
