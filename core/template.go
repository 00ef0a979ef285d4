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

package core

import (
	"regexp"
	"strings"

	"github.com/Comcast/voxmatch/vocab"

	"github.com/dlclark/regexp2"
)

// Matcher is a compiled template.
//
// A Matcher is built once by a Compiler and is not modified
// afterwards.  To change its behavior, compile the template again.
type Matcher struct {
	// Template is the source that was compiled.
	Template string `json:"template" yaml:"template"`

	// Slots are the slot names in declaration order.  The i-th
	// slot corresponds to the i-th capturing group in Pattern.
	Slots []string `json:"slots" yaml:"slots"`

	// SlotTypes maps each typed slot to its entity type.
	SlotTypes map[string]string `json:"slotTypes" yaml:"slotTypes"`

	// Parameters are the static [name=value] bindings.
	Parameters map[string]string `json:"parameters" yaml:"parameters"`

	// Pattern is a regular expression.  Each non-empty piece of
	// the template contributes a fragment that starts with a
	// single space, so the pattern should be matched against an
	// utterance with a leading space.  See package match.
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Compiler compiles templates against one vocabulary.
//
// The template language:
//
//	template      := (paramBinding | untypedSlot | typedSlot | altGroup | wordRun)*
//	paramBinding  := '[' ident '=' ident ']'
//	untypedSlot   := '[' ident ']'
//	typedSlot     := '[' ident ':' ident ']'
//	altGroup      := '(' alt ('|' alt)* ')'
//	wordRun       := any run of characters excluding '(' and '['
//
// An ident is one or more ASCII letters, digits, or underscores.
// Whitespace around idents and between pieces is ignored.  Word runs
// and alternatives can use {text} to mark text as optional.
//
// A Compiler holds no per-compilation state, so one Compiler can be
// used from many goroutines as long as its Vocabulary can.
type Compiler struct {
	Vocabulary vocab.Vocabulary

	// SkipValidation turns off the final check that Pattern is a
	// usable regular expression.
	SkipValidation bool
}

// NewCompiler makes a Compiler for the given vocabulary.  A nil
// vocabulary has no entity types.
func NewCompiler(v vocab.Vocabulary) *Compiler {
	if v == nil {
		v = vocab.Map{}
	}
	return &Compiler{
		Vocabulary: v,
	}
}

// Compile compiles the template with a new Compiler for the given
// vocabulary.
func Compile(template string, v vocab.Vocabulary) (*Matcher, error) {
	return NewCompiler(v).Compile(template)
}

// Compile turns the template into a Matcher.
//
// The template is consumed left to right.  Each step looks at the
// unconsumed suffix (with surrounding whitespace removed) and applies
// the first production that recognizes its prefix.  No choice is ever
// revisited.
//
// The result is all or nothing: on error, the returned Matcher is
// nil.
func (c *Compiler) Compile(template string) (*Matcher, error) {
	b := newBuilder(template)

	rest := template
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		var err error
		if rest, err = c.step(b, rest); err != nil {
			return nil, err
		}
	}

	m := b.matcher()

	if !c.SkipValidation {
		if _, err := regexp2.Compile(m.Pattern, regexp2.None); err != nil {
			return nil, &InvalidPattern{
				Pattern:  m.Pattern,
				Template: template,
				Err:      err,
			}
		}
	}

	return m, nil
}

// step consumes one piece from the front of s, which is not empty
// and has no leading space.  Returns what's left.
func (c *Compiler) step(b *builder, s string) (string, error) {
	switch s[0] {
	case '[':
		return c.bracket(b, s)
	case '(':
		return b.alternatives(s)
	default:
		return b.words(s), nil
	}
}

// bracket handles the three bracketed productions, which are tried
// in order: parameter binding, untyped slot, typed slot.
func (c *Compiler) bracket(b *builder, s string) (string, error) {
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", b.malformed(s)
	}
	inner, rest := s[1:end], s[end+1:]

	if name, value, ok := pair(inner, '='); ok {
		b.params[name] = value
		return rest, nil
	}

	if name := strings.TrimSpace(inner); isIdent(name) {
		if err := b.addSlot(name); err != nil {
			return "", err
		}
		b.pattern.WriteString("( .+?)")
		return rest, nil
	}

	if name, entityType, ok := pair(inner, ':'); ok {
		phrases, have := c.Vocabulary.Lookup(entityType)
		if !have {
			return "", &UnknownEntityType{
				EntityType: entityType,
				Template:   b.template,
			}
		}
		if err := b.addSlot(name); err != nil {
			return "", err
		}
		b.slotTypes[name] = entityType
		quoted := make([]string, len(phrases))
		for i, p := range phrases {
			quoted[i] = regexp.QuoteMeta(p)
		}
		b.alternation("(", quoted)
		return rest, nil
	}

	return "", b.malformed(s)
}

// builder accumulates the results of one compilation.
type builder struct {
	template  string
	slots     []string
	slotTypes map[string]string
	params    map[string]string
	pattern   strings.Builder
}

func newBuilder(template string) *builder {
	return &builder{
		template:  template,
		slots:     make([]string, 0, 4),
		slotTypes: make(map[string]string),
		params:    make(map[string]string),
	}
}

func (b *builder) malformed(fragment string) error {
	return &MalformedFragment{
		Fragment: fragment,
		Template: b.template,
	}
}

func (b *builder) addSlot(name string) error {
	for _, slot := range b.slots {
		if slot == name {
			return &DuplicateSlot{
				Slot:     name,
				Template: b.template,
			}
		}
	}
	b.slots = append(b.slots, name)
	return nil
}

// alternation writes the alternatives as a group that opens with
// open.  A non-empty alternative gets a leading space, and an empty
// one becomes an empty branch.
func (b *builder) alternation(open string, alts []string) {
	b.pattern.WriteString(open)
	for i, alt := range alts {
		if 0 < i {
			b.pattern.WriteByte('|')
		}
		if alt != "" {
			b.pattern.WriteByte(' ')
			b.pattern.WriteString(alt)
		}
	}
	b.pattern.WriteByte(')')
}

// alternatives handles "(alt1|alt2|...)".  The interior runs to the
// first ')' and must not be empty.
func (b *builder) alternatives(s string) (string, error) {
	end := strings.IndexByte(s, ')')
	if end <= 1 {
		return "", b.malformed(s)
	}
	alts := strings.Split(s[1:end], "|")
	for i, alt := range alts {
		alts[i] = quoteAuthored(strings.TrimSpace(alt))
	}
	b.alternation("(?:", alts)
	return s[end+1:], nil
}

// words handles a literal run up to the next '(' or '['.
func (b *builder) words(s string) string {
	end := strings.IndexAny(s, "([")
	if end < 0 {
		end = len(s)
	}
	b.pattern.WriteByte(' ')
	b.pattern.WriteString(quoteAuthored(strings.TrimSpace(s[:end])))
	return s[end:]
}

// authoredMeta are the regular-expression metacharacters that
// authored text matches literally.  Braces and backslashes are left
// for OptionalGroups.
const authoredMeta = `.+*?^$|()[]`

// quoteAuthored escapes authoredMeta in words and alternatives.
func quoteAuthored(s string) string {
	if !strings.ContainsAny(s, authoredMeta) {
		return s
	}
	var acc strings.Builder
	for _, r := range s {
		if strings.ContainsRune(authoredMeta, r) {
			acc.WriteByte('\\')
		}
		acc.WriteRune(r)
	}
	return acc.String()
}

func (b *builder) matcher() *Matcher {
	return &Matcher{
		Template:   b.template,
		Slots:      b.slots,
		SlotTypes:  b.slotTypes,
		Parameters: b.params,
		Pattern:    OptionalGroups(b.pattern.String()),
	}
}

// pair splits "a <sep> b" into two idents.
func pair(s string, sep byte) (string, string, bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return "", "", false
	}
	left, right := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	if !isIdent(left) || !isIdent(right) {
		return "", "", false
	}
	return left, right, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z':
		case 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// OptionalGroups rewrites every "{X}" into "(?:X)?".
//
// X runs to the first following '}'.  Backslash-escaped braces are
// left alone, and an unclosed '{' is copied as is.
func OptionalGroups(s string) string {
	if strings.IndexByte(s, '{') < 0 {
		return s
	}
	var acc strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			acc.WriteByte(c)
			if i+1 < len(s) {
				i++
				acc.WriteByte(s[i])
			}
		case '{':
			j := closingBrace(s, i+1)
			if j < 0 {
				acc.WriteByte(c)
				continue
			}
			acc.WriteString("(?:")
			acc.WriteString(s[i+1 : j])
			acc.WriteString(")?")
			i = j
		default:
			acc.WriteByte(c)
		}
	}
	return acc.String()
}

func closingBrace(s string, from int) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '}':
			return i
		}
	}
	return -1
}
