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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/sio"
	"github.com/Comcast/voxmatch/vocab"
	"github.com/Comcast/voxmatch/vocab/bolt"

	"github.com/google/go-cmp/cmp"
)

const testIntents = `
intents:
  - name: navigation.open
    phrases:
      - "open [app:serviceName]"
    action:
      interpreter: goja
      source: |
        _.out({topic: "apps/open", app: _.slots.app});
        return {app: _.slots.app.toUpperCase()};
  - name: translate
    phrases:
      - "say [what] in [lang:language]"
`

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in    string
		topic string
		qos   byte
	}{
		{"a/b", "a/b", 0},
		{"a/b:1", "a/b", 1},
		{"a/b:2", "a/b", 2},
		{"a/b:3", "a/b:3", 0},
		{"a:b/c", "a:b/c", 0},
		{"", "", 0},
	}
	for _, tc := range tests {
		topic, qos := parseTopic(tc.in)
		if topic != tc.topic || qos != tc.qos {
			t.Errorf("parseTopic(%q) = %q, %d", tc.in, topic, qos)
		}
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte("  open gmail\n"), "x/1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&sio.Request{Id: "x/1", Utterance: "open gmail"}, req); diff != "" {
		t.Fatal(diff)
	}

	req, err = decodeRequest([]byte(`{"id":"42","utterance":"open gmail","parseOnly":true}`), "x/2")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&sio.Request{Id: "42", Utterance: "open gmail", ParseOnly: true}, req); diff != "" {
		t.Fatal(diff)
	}

	if _, err = decodeRequest([]byte(`{"utterance":`), "x/3"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err = decodeRequest([]byte("  "), "x/4"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestPublications(t *testing.T) {
	r := &sio.Response{
		Id:     "1",
		Intent: "navigation.open",
		Emitted: []interface{}{
			map[string]interface{}{"topic": "apps/open", "qos": float64(1)},
			map[string]interface{}{"app": "gmail"},
			"plain",
		},
	}
	ps := publications(r, "voxmatch/parsed:1", "voxmatch/out")
	if len(ps) != 4 {
		t.Fatalf("got %d publications", len(ps))
	}

	var got []string
	for _, p := range ps {
		got = append(got, fmt.Sprintf("%s:%d", p.Topic, p.QoS))
	}
	want := []string{"voxmatch/parsed:1", "apps/open:1", "voxmatch/out:0", "voxmatch/out:0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}

	var resp sio.Response
	if err := json.Unmarshal(ps[0].Payload, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Intent != "navigation.open" {
		t.Fatalf("payload %s", ps[0].Payload)
	}
	if string(ps[3].Payload) != `"plain"` {
		t.Fatalf("payload %s", ps[3].Payload)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(3)

	if msgs := h.Get(ctx, 0, time.Millisecond); len(msgs) != 0 {
		t.Fatalf("got %d", len(msgs))
	}

	for _, id := range []string{"a", "b", "c", "d"} {
		h.Add(&sio.Response{Id: id})
	}

	ids := func(msgs []HistoryMsg) string {
		acc := make([]string, len(msgs))
		for i, m := range msgs {
			acc[i] = m.Response.Id
		}
		return strings.Join(acc, ",")
	}

	if got := ids(h.Get(ctx, 0, time.Millisecond)); got != "b,c,d" {
		t.Fatalf("got %s", got)
	}
	if got := ids(h.Get(ctx, 3, time.Millisecond)); got != "d" {
		t.Fatalf("got %s", got)
	}
	if got := ids(h.Get(ctx, 10, time.Millisecond)); got != "" {
		t.Fatalf("got %s", got)
	}

	// A waiting Get wakes up when a response arrives.
	go func() {
		time.Sleep(20 * time.Millisecond)
		h.Add(&sio.Response{Id: "e"})
	}()
	if got := ids(h.Get(ctx, 4, 5*time.Second)); got != "e" {
		t.Fatalf("got %s", got)
	}
}

func testService(t *testing.T, ctx context.Context) *sio.Service {
	t.Helper()
	set, err := intent.Parse([]byte(testIntents))
	if err != nil {
		t.Fatal(err)
	}
	v := vocab.Map{
		"serviceName": {"gmail", "google drive"},
		"language":    {"french", "german"},
	}
	if err = set.Compile(ctx, v, nil); err != nil {
		t.Fatal(err)
	}
	svc, err := sio.NewService(ctx, nil, set, nil)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestHTTPDStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("unstarted", func(t *testing.T) {
		c := &HTTPDCouplings{}
		if err := c.Stop(ctx); err != nil {
			t.Fatal(err)
		}
		if err := c.Stop(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("twice", func(t *testing.T) {
		c := &HTTPDCouplings{Port: "127.0.0.1:0"}
		if err := c.Start(ctx); err != nil {
			t.Fatal(err)
		}
		_, _, done, err := c.IO(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Stop(ctx); err != nil {
			t.Fatal(err)
		}
		if err := c.Stop(ctx); err != nil {
			t.Fatal(err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("done not closed")
		}
	})
}

func TestHTTPHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &HTTPDCouplings{}
	c.init()
	h := c.handler(ctx)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		return w
	}

	if w := get("/ping"); w.Body.String() != "\"pong\"\n" {
		t.Fatalf("ping %q", w.Body.String())
	}

	if w := get("/parse?u=open+gmail"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d before SetService", w.Code)
	}

	c.SetService(testService(t, ctx))

	t.Run("parse", func(t *testing.T) {
		w := get("/parse?u=Open++Google+Drive")
		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body)
		}
		var r sio.Response
		if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
			t.Fatal(err)
		}
		if r.Intent != "navigation.open" {
			t.Fatalf("response %s", w.Body)
		}
		if diff := cmp.Diff(map[string]string{"app": "Google Drive"}, r.Slots); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(map[string]interface{}{"app": "GOOGLE DRIVE"}, r.Bindings); diff != "" {
			t.Fatal(diff)
		}
		if len(r.Emitted) != 1 {
			t.Fatalf("emitted %#v", r.Emitted)
		}
	})

	t.Run("parse-post", func(t *testing.T) {
		body := `{"id":"p1","utterance":"say hello world in german","parseOnly":true}`
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/parse", strings.NewReader(body)))
		var r sio.Response
		if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
			t.Fatal(err)
		}
		if r.Id != "p1" || r.Intent != "translate" {
			t.Fatalf("response %s", w.Body)
		}
		if diff := cmp.Diff(map[string]string{"what": "hello world", "lang": "german"}, r.Slots); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("parse-nomatch", func(t *testing.T) {
		w := get("/parse?u=make+coffee")
		var r sio.Response
		if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
			t.Fatal(err)
		}
		if r.Matched() || r.Error != "" {
			t.Fatalf("response %s", w.Body)
		}
	})

	t.Run("in", func(t *testing.T) {
		if w := get("/in?u=open+gmail"); w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status %d", w.Code)
		}

		got := make(chan *sio.Request, 1)
		go func() {
			got <- <-c.in
		}()

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/in", strings.NewReader("open gmail")))
		if w.Code != http.StatusOK {
			t.Fatalf("status %d: %s", w.Code, w.Body)
		}
		select {
		case req := <-got:
			if req.Utterance != "open gmail" || req.Id == "" {
				t.Fatalf("request %#v", req)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("request not forwarded")
		}
	})

	t.Run("history", func(t *testing.T) {
		c.hist.Add(&sio.Response{Id: "h1", Intent: "translate"})
		w := get("/history?since=0&timeout=10ms")
		var msgs []HistoryMsg
		if err := json.Unmarshal(w.Body.Bytes(), &msgs); err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 1 || msgs[0].N != 1 || msgs[0].Response.Id != "h1" {
			t.Fatalf("history %s", w.Body)
		}
	})
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var (
		intentsFile = filepath.Join(dir, "intents.yaml")
		vocabFile   = filepath.Join(dir, "vocab.yaml")
		dbFile      = filepath.Join(dir, "vocab.db")
	)

	if err := ioutil.WriteFile(intentsFile, []byte(testIntents), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(vocabFile, []byte("serviceName: [gmail, google drive]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := bolt.NewStorage(dbFile)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err = s.Put(ctx, "language", []string{"french", "klingon"}); err != nil {
		t.Fatal(err)
	}
	if err = s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	l := &loader{
		intentsFile: intentsFile,
		vocabFile:   vocabFile,
		vocabDB:     dbFile,
	}

	v, err := l.Vocabulary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := vocab.Map{
		"serviceName": {"gmail", "google drive"},
		"language":    {"french", "klingon"},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatal(diff)
	}

	set, err := l.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	p, err := set.Parse("say hi in klingon")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Intent != "translate" {
		t.Fatalf("parsed %#v", p)
	}

	// The built-in vocabulary doesn't know "language".
	l = &loader{
		intentsFile: intentsFile,
		std:         true,
	}
	if _, err = l.Load(ctx); err == nil {
		t.Fatal("expected an error")
	}
}
