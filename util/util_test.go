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

package util

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogf(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	was := SetLogging(false)
	defer SetLogging(was)

	Logf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("logged %q", buf.String())
	}

	SetLogging(true)
	Logf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Fatalf("logged %q", buf.String())
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"play music", 20, `"play music"`},
		{"play some music now", 10, `"play so..."`},
		{"abc", 2, `"abc"`},
	}
	for _, tc := range tests {
		if got := Quote(tc.s, tc.max); got != tc.want {
			t.Errorf("Quote(%q, %d) = %s, want %s", tc.s, tc.max, got, tc.want)
		}
	}
}
