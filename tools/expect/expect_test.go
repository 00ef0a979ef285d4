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

package expect

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/interpreters/goja"
	"github.com/Comcast/voxmatch/sio"
	"github.com/Comcast/voxmatch/vocab"

	"github.com/jsccast/yaml"
)

const intents = `
intents:
  - name: navigation.navigate
    phrases:
      - open [app:serviceName]
  - name: search.search
    phrases:
      - search [query]
    action:
      interpreter: goja
      source: 'return {url: "https://example.com/?q=" + _.esc(_.slots.query)};'
`

const session = `
doc: A little session.
defaultTimeout: 2s
ios:
  - inputs:
      - open gmail
      - '{"id":"q","utterance":"search cheap tacos"}'
    outputSet:
      - intent: navigation.navigate
        slots:
          app: gmail
        guard:
          interpreter: goja
          source: 'return _.slots.app === "gmail" ? {} : null;'
      - id: q
        intent: search.search
        slots:
          query: cheap tacos
        bindings:
          url: https://example.com/?q=cheap+tacos
  - inputs:
      - hum a tune
    outputSet:
      - noMatch: true
`

// service runs a Service with Stdio couplings over pipes.  Returns
// the writer for input lines and the reader for responses.
func service(t *testing.T, ctx context.Context) (io.WriteCloser, io.ReadCloser) {
	t.Helper()

	s, err := intent.Parse([]byte(intents))
	if err != nil {
		t.Fatal(err)
	}
	is := map[string]intent.Interpreter{
		"goja": goja.NewInterpreter(),
	}
	if err = s.Compile(ctx, vocab.Standard(), is); err != nil {
		t.Fatal(err)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	svc, err := sio.NewService(ctx, nil, s, &sio.Stdio{
		In:  inR,
		Out: outW,
	})
	if err != nil {
		t.Fatal(err)
	}
	go svc.Loop(ctx)

	t.Cleanup(func() {
		inW.Close()
		outR.Close()
	})

	return inW, outR
}

func TestSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var s *Session
	if err := yaml.Unmarshal([]byte(session), &s); err != nil {
		t.Fatal(err)
	}
	if s.DefaultTimeout != 2*time.Second {
		t.Fatalf("timeout %s", s.DefaultTimeout)
	}
	s.Interpreters = map[string]intent.Interpreter{
		"goja": goja.NewInterpreter(),
	}

	w, r := service(t, ctx)
	if err := s.RunIO(ctx, w, r); err != nil {
		t.Fatal(err)
	}

	for _, o := range s.IOs[0].OutputSet {
		if o.Got == nil {
			t.Fatalf("no response recorded for %#v", o)
		}
	}
	if got := s.IOs[0].OutputSet[1].Got.Id; got != "q" {
		t.Fatalf("id %q", got)
	}
}

func TestSessionTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &Session{
		IOs: []*IO{
			{
				Inputs:    []string{"hum a tune"},
				OutputSet: []*Output{{Intent: "music.play"}},
				Timeout:   200 * time.Millisecond,
			},
		},
	}

	w, r := service(t, ctx)
	if err := s.RunIO(ctx, w, r); err == nil {
		t.Fatal("expected a timeout")
	}
}

func TestSessionInverted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &Session{
		DefaultTimeout: 2 * time.Second,
		IOs: []*IO{
			{
				Inputs: []string{"search gmail", "open gmail"},
				OutputSet: []*Output{
					{Intent: "search.search", Inverted: true},
					{Intent: "navigation.navigate"},
				},
			},
		},
	}

	w, r := service(t, ctx)
	if err := s.RunIO(ctx, w, r); err == nil {
		t.Fatal("expected an undesired output")
	}
}

func TestOutputMatches(t *testing.T) {
	ctx := context.Background()
	r := &sio.Response{
		Id:         "1",
		Intent:     "navigation.navigate",
		Slots:      map[string]string{"app": "gmail"},
		Parameters: map[string]string{"mode": "tab"},
		Bindings:   map[string]interface{}{"n": float64(3)},
	}

	tests := []struct {
		name string
		o    *Output
		want bool
	}{
		{"empty", &Output{}, true},
		{"intent", &Output{Intent: "navigation.navigate"}, true},
		{"wrong intent", &Output{Intent: "search.search"}, false},
		{"id", &Output{Id: "2"}, false},
		{"slots", &Output{Slots: map[string]string{"app": "gmail"}}, true},
		{"wrong slot", &Output{Slots: map[string]string{"app": "gdrive"}}, false},
		{"params", &Output{Parameters: map[string]string{"mode": "tab"}}, true},
		{"bindings", &Output{Bindings: map[string]interface{}{"n": 3}}, true},
		{"missing binding", &Output{Bindings: map[string]interface{}{"m": 3}}, false},
		{"no match", &Output{NoMatch: true}, false},
		{"error", &Output{Error: "oops"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.o.Matches(ctx, r)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}
