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
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline ("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`

	find := func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	}

	got, err := Inline([]byte(input), find)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("got %s", got)
	}
}

func TestInlineError(t *testing.T) {
	find := func(name string) ([]byte, error) {
		return nil, errors.New("no " + name)
	}
	if _, err := Inline([]byte(`%inline("x")`), find); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestReadSetFile(t *testing.T) {
	dir := t.TempDir()

	action := `return {app: _.slots.app};`
	if err := ioutil.WriteFile(filepath.Join(dir, "open.js"), []byte(action), 0644); err != nil {
		t.Fatal(err)
	}

	intents := `
name: test
intents:
  - name: navigation.navigate
    phrases:
      - open [app:serviceName]
    action:
      interpreter: goja
      source: '%inline("open.js")'
`
	filename := filepath.Join(dir, "intents.yaml")
	if err := ioutil.WriteFile(filename, []byte(intents), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := ReadSetFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Intents[0].ActionSource.Source; got != action {
		t.Fatalf("source %#v", got)
	}

	if _, err = DirInliner(dir)("../etc/passwd"); err == nil {
		t.Fatal("didn't protest")
	}
}
