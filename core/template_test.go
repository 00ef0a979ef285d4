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
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Comcast/voxmatch/vocab"

	"github.com/dlclark/regexp2"
	"github.com/google/go-cmp/cmp"
)

var testVocab = vocab.Map{
	"serviceName": {"gmail", "google drive"},
	"politeness":  {"", "please"},
	"lang":        {"french", "german"},
}

// fullMatch reports whether the pattern matches the whole utterance
// (with the leading separator space that every fragment expects).
func fullMatch(t *testing.T, m *Matcher, utterance string) bool {
	t.Helper()
	if utterance != "" {
		utterance = " " + utterance
	}
	re, err := regexp2.Compile(`\A(?:`+m.Pattern+`)\z`, regexp2.None)
	if err != nil {
		t.Fatalf("pattern %q: %v", m.Pattern, err)
	}
	ok, err := re.MatchString(utterance)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func mustCompile(t *testing.T, template string) *Matcher {
	t.Helper()
	m, err := Compile(template, testVocab)
	if err != nil {
		t.Fatalf("compiling %q: %v", template, err)
	}
	return m
}

func TestCompilePatterns(t *testing.T) {
	tests := []struct {
		template string
		pattern  string
	}{
		{"", ""},
		{"   ", ""},
		{"turn it up", " turn it up"},
		{"  turn it up  ", " turn it up"},
		{"open [app:serviceName]", " open( gmail| google drive)"},
		{"play (some |)music", " play(?: some|) music"},
		{"play ( some | any | ) music", " play(?: some| any|) music"},
		{"search [query]", " search( .+?)"},
		{"search [query] on [app:serviceName]", " search( .+?) on( gmail| google drive)"},
		{"[volume=loud] turn it up", " turn it up"},
		{"stop [p:politeness]", " stop(| please)"},
		{"go to {the} page", " go to (?:the)? page"},
		{"go (to|into) [where]", " go(?: to| into)( .+?)"},
		{"[ x ]", "( .+?)"},
		{"[ x : lang ]", "( french| german)"},
		{"a(b)c", " a(?: b) c"},
		{"what is 2+2", ` what is 2\+2`},
		{"are you there?", ` are you there\?`},
		{"smile :)", ` smile :\)`},
		{"(c++|go) docs", `(?: c\+\+| go) docs`},
		{"price in $ ^ * .", ` price in \$ \^ \* \.`},
		{"go {to} page?", ` go (?:to)? page\?`},
	}

	for _, tc := range tests {
		t.Run(tc.template, func(t *testing.T) {
			m := mustCompile(t, tc.template)
			if m.Pattern != tc.pattern {
				t.Fatalf("pattern %q, want %q", m.Pattern, tc.pattern)
			}
			if m.Template != tc.template {
				t.Fatalf("template %q", m.Template)
			}
		})
	}
}

func TestTypedSlot(t *testing.T) {
	v := vocab.Map{"serviceName": {"gmail", "google drive"}}
	m, err := Compile("open [app:serviceName]", v)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"app"}, m.Slots); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(map[string]string{"app": "serviceName"}, m.SlotTypes); diff != "" {
		t.Fatal(diff)
	}

	for _, u := range []string{"open gmail", "open google drive"} {
		if !fullMatch(t, m, u) {
			t.Errorf("%q should match %q", m.Pattern, u)
		}
	}
	for _, u := range []string{"open dropbox", "open", "open gmail now", ""} {
		if fullMatch(t, m, u) {
			t.Errorf("%q should not match %q", m.Pattern, u)
		}
	}
}

func TestAlternatives(t *testing.T) {
	m := mustCompile(t, "play (some |)music")
	for _, u := range []string{"play some music", "play music"} {
		if !fullMatch(t, m, u) {
			t.Errorf("%q should match %q", m.Pattern, u)
		}
	}
	if fullMatch(t, m, "play any music") {
		t.Error("matched an absent alternative")
	}
	if len(m.Slots) != 0 {
		t.Fatalf("unexpected slots %v", m.Slots)
	}
}

func TestParameters(t *testing.T) {
	m := mustCompile(t, "[volume=loud] turn it up")
	if diff := cmp.Diff(map[string]string{"volume": "loud"}, m.Parameters); diff != "" {
		t.Fatal(diff)
	}
	if len(m.Slots) != 0 {
		t.Fatalf("unexpected slots %v", m.Slots)
	}
	if !fullMatch(t, m, "turn it up") {
		t.Fatal("parameter affected the pattern")
	}

	m = mustCompile(t, "[volume=loud] turn it up [ volume = quiet ][speed=slow]")
	want := map[string]string{"volume": "quiet", "speed": "slow"}
	if diff := cmp.Diff(want, m.Parameters); diff != "" {
		t.Fatal(diff)
	}
}

func TestEmptyTemplate(t *testing.T) {
	m := mustCompile(t, "")
	if m.Pattern != "" {
		t.Fatalf("pattern %q", m.Pattern)
	}
	if !fullMatch(t, m, "") {
		t.Fatal("empty pattern should match the empty string")
	}
	if fullMatch(t, m, "hello") {
		t.Fatal("empty pattern matched a word")
	}
	if m.Slots == nil || m.SlotTypes == nil || m.Parameters == nil {
		t.Fatal("nil metadata")
	}
}

func TestSlotOrder(t *testing.T) {
	m := mustCompile(t, "[c] then [a:lang] then [b]")
	if diff := cmp.Diff([]string{"c", "a", "b"}, m.Slots); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(map[string]string{"a": "lang"}, m.SlotTypes); diff != "" {
		t.Fatal(diff)
	}
}

func TestUntypedSlotIsMinimal(t *testing.T) {
	m := mustCompile(t, "search [query] on [app:serviceName]")

	re := regexp2.MustCompile(`\A(?:`+m.Pattern+`)\z`, regexp2.None)
	match, err := re.FindStringMatch(" search cheap flights on google drive")
	if err != nil {
		t.Fatal(err)
	}
	if match == nil {
		t.Fatal("no match")
	}
	if got := match.GroupByNumber(1).String(); got != " cheap flights" {
		t.Fatalf("query %q", got)
	}
	if got := match.GroupByNumber(2).String(); got != " google drive" {
		t.Fatalf("app %q", got)
	}
}

func TestUnknownEntityType(t *testing.T) {
	_, err := Compile("open [x:unknownType]", testVocab)
	var u *UnknownEntityType
	if !errors.As(err, &u) {
		t.Fatalf("expected UnknownEntityType, got %v", err)
	}
	if u.EntityType != "unknownType" {
		t.Fatalf("entity type %q", u.EntityType)
	}
	if !IsCompileError(err) {
		t.Fatal("not a compile error")
	}

	// A nil vocabulary knows no entity types.
	if _, err = Compile("[x:lang]", nil); !errors.As(err, &u) {
		t.Fatalf("expected UnknownEntityType, got %v", err)
	}
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		template string
		fragment string
	}{
		{"open [app", "[app"},
		{"open [app:serviceName", "[app:serviceName"},
		{"play (some | music", "(some | music"},
		{"play () music", "() music"},
		{"[a b]", "[a b]"},
		{"[=x]", "[=x]"},
		{"[a:]", "[a:]"},
		{"[a-b]", "[a-b]"},
		{"[]", "[]"},
		{"x [a=b=c]", "[a=b=c]"},
		{"(", "("},
		{"[", "["},
	}

	for _, tc := range tests {
		t.Run(tc.template, func(t *testing.T) {
			m, err := Compile(tc.template, testVocab)
			if m != nil {
				t.Fatalf("partial matcher %#v", m)
			}
			var mf *MalformedFragment
			if !errors.As(err, &mf) {
				t.Fatalf("expected MalformedFragment, got %v", err)
			}
			if mf.Fragment != tc.fragment {
				t.Fatalf("fragment %q, want %q", mf.Fragment, tc.fragment)
			}
			if mf.Template != tc.template {
				t.Fatalf("template %q", mf.Template)
			}
			if !strings.Contains(err.Error(), tc.template) {
				t.Fatalf("error %q doesn't mention the template", err)
			}
		})
	}
}

func TestDuplicateSlot(t *testing.T) {
	_, err := Compile("from [x] to [x:lang]", testVocab)
	var d *DuplicateSlot
	if !errors.As(err, &d) {
		t.Fatalf("expected DuplicateSlot, got %v", err)
	}
	if d.Slot != "x" {
		t.Fatalf("slot %q", d.Slot)
	}
}

func TestInvalidPattern(t *testing.T) {
	_, err := Compile(`trailing \`, testVocab)
	var p *InvalidPattern
	if !errors.As(err, &p) {
		t.Fatalf("expected InvalidPattern, got %v", err)
	}
	if p.Unwrap() == nil {
		t.Fatal("no cause")
	}

	c := NewCompiler(testVocab)
	c.SkipValidation = true
	m, err := c.Compile(`trailing \`)
	if err != nil {
		t.Fatal(err)
	}
	if m.Pattern != ` trailing \` {
		t.Fatalf("pattern %q", m.Pattern)
	}
}

func TestAuthoredTextIsLiteral(t *testing.T) {
	tests := []struct {
		template string
		matches  []string
		misses   []string
	}{
		{"what is 2+2", []string{"what is 2+2"}, []string{"what is 22", "what is 2222"}},
		{"are you there?", []string{"are you there?"}, []string{"are you ther", "are you there"}},
		{"c++ docs", []string{"c++ docs"}, []string{"c docs", "cc docs"}},
		{"(c++|go) docs", []string{"c++ docs", "go docs"}, []string{"c docs"}},
		{"pay $5. ^now *", []string{"pay $5. ^now *"}, []string{"pay $5x ^now *"}},
		{"smile :)", []string{"smile :)"}, []string{"smile :"}},
		{"go {to} page?", []string{"go page?", "go to page?"}, []string{"go to page"}},
	}
	for _, tc := range tests {
		t.Run(tc.template, func(t *testing.T) {
			m := mustCompile(t, tc.template)
			for _, u := range tc.matches {
				if !fullMatch(t, m, u) {
					t.Errorf("%q (%q) doesn't match %q", tc.template, m.Pattern, u)
				}
			}
			for _, u := range tc.misses {
				if fullMatch(t, m, u) {
					t.Errorf("%q (%q) matches %q", tc.template, m.Pattern, u)
				}
			}
		})
	}
}

func TestParsedPhrasesMatchAsWritten(t *testing.T) {
	v, err := vocab.Parse([]byte("confirm: [yes, no]\nprice: [1.50, 010]\n"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := Compile("say [a:confirm] for [p:price]", v)
	if err != nil {
		t.Fatal(err)
	}
	if !fullMatch(t, m, "say yes for 1.50") || !fullMatch(t, m, "say no for 010") {
		t.Fatalf("pattern %q", m.Pattern)
	}
	if fullMatch(t, m, "say true for 1.5") {
		t.Fatalf("pattern %q matches decoded values", m.Pattern)
	}
}

func TestPhrasesAreQuoted(t *testing.T) {
	v := vocab.Map{"site": {"dictionary.com"}}
	m, err := Compile("open [s:site]", v)
	if err != nil {
		t.Fatal(err)
	}
	if !fullMatch(t, m, "open dictionary.com") {
		t.Fatal("no match")
	}
	if fullMatch(t, m, "open dictionaryxcom") {
		t.Fatal("dot wasn't quoted")
	}
}

func TestOptionalGroups(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"", ""},
		{"abc", "abc"},
		{"{a}", "(?:a)?"},
		{"x{a}y{b}", "x(?:a)?y(?:b)?"},
		{"{a{b}c}", "(?:a{b)?c}"},
		{`\{a\}`, `\{a\}`},
		{`{a\}b}`, `(?:a\}b)?`},
		{"{open", "{open"},
	}
	for _, tc := range tests {
		if got := OptionalGroups(tc.in); got != tc.out {
			t.Errorf("OptionalGroups(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestIdempotent(t *testing.T) {
	templates := []string{
		"open [app:serviceName] [mode=new] {please}",
		"[q] (a|b|) [l:lang]",
	}
	for _, template := range templates {
		a := mustCompile(t, template)
		b := mustCompile(t, template)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("%q: %s", template, diff)
		}
	}
}

func TestConcurrentCompilations(t *testing.T) {
	c := NewCompiler(testVocab)
	want := mustCompile(t, "open [app:serviceName] in [l:lang]")

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < cap(errs); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.Compile("open [app:serviceName] in [l:lang]")
			if err != nil {
				errs <- err
				return
			}
			if !cmp.Equal(want, m) {
				errs <- errors.New("different result")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
