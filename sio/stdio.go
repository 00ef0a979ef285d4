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

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/Comcast/voxmatch/util/testutil"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// Each input line is either a JSON Request or plain text, which is
// taken as an utterance.  Each Response is written as a line of JSON.
type Stdio struct {
	// In is coupled to service input.
	In io.Reader

	// Out is coupled to service output.
	Out io.Writer

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "parse", "emit").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// PrintEmitted writes each emitted message on its own line
	// (after the response).
	PrintEmitted bool

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	WG sync.WaitGroup

	// n numbers plain-text requests.
	n int
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio() *Stdio {
	return &Stdio{
		In:       os.Stdin,
		Out:      os.Stdout,
		InputEOF: make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until IO is complete or was terminated via its context.
//
// The output side only finishes when its context is done, so cancel
// the context given to IO before calling Stop.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

// request makes a Request from an input line.
func (s *Stdio) request(line string) (*Request, error) {
	if strings.HasPrefix(line, "{") {
		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	s.n++
	return &Request{
		Id:        strconv.Itoa(s.n),
		Utterance: line,
	}, nil
}

// IO returns channels for reading from stdin and writing to stdout.
func (s *Stdio) IO(ctx context.Context) (chan *Request, chan *Response, chan bool, error) {
	in := make(chan *Request)
	done := make(chan bool)

	if s.InputEOF == nil {
		s.InputEOF = make(chan bool)
	}

	// Input echoes and responses come from different goroutines.
	var mu sync.Mutex
	printf := func(tag, format string, args ...interface{}) {
		if s.PadTags {
			tag = fmt.Sprintf("% 10s", tag)
		}
		if s.Tags {
			format = tag + " " + format
		}
		if s.Timestamps {
			ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
			format = ts + " " + format
		}

		mu.Lock()
		fmt.Fprintf(s.Out, format, args...)
		mu.Unlock()
	}

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		stdin := bufio.NewReader(s.In)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				line, err := stdin.ReadString('\n')
				if err != nil && err != io.EOF {
					log.Printf("stdin error %s", err)
					return
				}
				eof := err == io.EOF
				line = strings.TrimSpace(line)
				if line == "quit" {
					eof = true
					line = ""
				}
				if s.EchoInput && line != "" {
					printf("input", "%s\n", line)
				}
				if line != "" && !strings.HasPrefix(line, "#") {
					req, err := s.request(line)
					if err != nil {
						fmt.Fprintf(os.Stderr, "bad input: %s\n", err)
					} else {
						select {
						case <-ctx.Done():
							return
						case in <- req:
						}
					}
				}
				if eof {
					log.Printf("stdio input done")
					close(done)
					close(s.InputEOF)
					return
				}
			}
		}
	}()

	out := make(chan *Response)

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-out:
				if r == nil {
					return
				}
				printf("parse", "%s\n", JS(r))
				if s.PrintEmitted {
					for _, msg := range r.Emitted {
						printf("emit", "%s\n", JS(msg))
					}
				}
			}
		}
	}()

	return in, out, done, nil
}
