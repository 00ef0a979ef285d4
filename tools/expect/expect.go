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

// Package expect is a tool for testing a running parse service.
//
// You construct a Session, which has input lines (utterances or JSON
// requests) and expected responses.  Then run the session to see if
// the expected responses actually appeared.
//
// Specifying what's expected can be simple, as in an intent and some
// slots, or fairly fancy, as in a guard that computes some property.
//
// This package also has support for delays and timeouts.
//
// See ../../cmd/voxtool for command-line use.
package expect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"reflect"
	"strings"
	"time"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/sio"
	. "github.com/Comcast/voxmatch/util/testutil"
)

// Output is a specification for a response that's expected.
//
// Only the given fields are checked.  Slots, Parameters, and
// Bindings need only be subsets of what the response has.
type Output struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Id         string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Intent     string                 `json:"intent,omitempty" yaml:"intent,omitempty"`
	Slots      map[string]string      `json:"slots,omitempty" yaml:"slots,omitempty"`
	Parameters map[string]string      `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Bindings   map[string]interface{} `json:"bindings,omitempty" yaml:"bindings,omitempty"`

	// NoMatch requires a response that didn't match any intent.
	NoMatch bool `json:"noMatch,omitempty" yaml:"noMatch,omitempty"`

	// Error, if not empty, must be a substring of the response's
	// error.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Guard is an optional action that gets the response as its
	// Env.  The guard passes if it returns non-null bindings.
	Guard intent.Action `json:"-" yaml:"-"`

	// GuardSource is optional source that will be compiled to the
	// Guard.
	GuardSource *intent.ActionSource `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Inverted means that matching output isn't desired!
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`

	// Got is the response that satisfied this Output.  Just for
	// diagnostics.
	Got *sio.Response `json:"got,omitempty" yaml:"got,omitempty"`
}

// IO is a package of input lines and required responses.
type IO struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// WaitBefore is the time to wait before sending the first line.
	WaitBefore time.Duration `json:"waitBefore,omitempty" yaml:"waitBefore,omitempty"`

	// WaitBetween is the time to wait between sending lines.
	WaitBetween time.Duration `json:"waitBetween,omitempty" yaml:"waitBetween,omitempty"`

	// Inputs are the lines to send: utterances or JSON requests.
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// WaitAfter is the time to wait after sending the last line.
	WaitAfter time.Duration `json:"waitAfter,omitempty" yaml:"waitAfter,omitempty"`

	// OutputSet is the set (not a list) of outputs to verify.
	OutputSet []*Output `json:"outputSet,omitempty" yaml:"outputSet,omitempty"`

	// Timeout is the optional timeout for this set.
	// Session.DefaultTimeout is the default value.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Session is mostly a sequence of IOs.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// IOs is sequence of IOs that this session will run.
	IOs []*IO `json:"ios" yaml:"ios"`

	// Interpreters are used (if necessary) to compile any
	// GuardSources.
	Interpreters map[string]intent.Interpreter `json:"-" yaml:"-"`

	// DefaultTimeout is the default timeout for each IO.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`

	// ShowStderr controls whether the subprocess's stderr is
	// logged.
	ShowStderr bool `json:"showStderr,omitempty" yaml:"showStderr,omitempty"`

	// ShowStdin controls whether the subprocess's stdin is
	// logged.
	ShowStdin bool `json:"showStdin,omitempty" yaml:"showStdin,omitempty"`

	// ShowStdout controls whether the subprocess's stdout is
	// logged.
	ShowStdout bool `json:"showStdout,omitempty" yaml:"showStdout,omitempty"`

	// OutputPrefix is a prefix (like a tag) to strip from output
	// lines.
	OutputPrefix string `json:"outputPrefix,omitempty" yaml:"outputPrefix,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Run processes all the IOs in the Session with a subprocess.
//
// The current directory is changed to 'dir' (and then hopefully
// restored).
//
// The subprocess is given by the args. The first arg is the
// executable.  Example args:
//
//	"voxd", "-io", "std", "-intents", "intents.yaml"
func (s *Session) Run(ctx context.Context, dir string, args ...string) error {

	if dir != "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := os.Chdir(dir); err != nil {
			return err
		}
		// Far from perfect ...
		defer func() {
			if err := os.Chdir(cwd); err != nil {
				log.Printf("error restoring cwd %s", cwd)
			}
		}()
	}

	if len(args) == 0 {
		return fmt.Errorf("need a command (and optional args) (for expect.Session.Run)")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	defer stdin.Close()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	// Log subprocess's stderr.
	go func() {
		out := bufio.NewReader(stderr)
		for {
			line, err := out.ReadBytes('\n')
			if err == io.EOF {
				break
			}
			if err != nil {
				if strings.Index(err.Error(), "already closed") < 0 {
					log.Printf("stderr error %s", err)
				}
				break
			}
			if s.ShowStderr {
				log.Printf("stderr %s", line)
			}
		}
	}()

	if err := s.RunIO(ctx, stdin, stdout); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return err
	}

	if err := stdin.Close(); err != nil {
		log.Printf("stdin.Close() error %s", err)
	}

	return cmd.Wait()
}

// RunIO processes all the IOs by writing lines to w and reading
// responses from r.
func (s *Session) RunIO(ctx context.Context, w io.Writer, r io.Reader) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		out     = bufio.NewReader(r)
		newline = []byte{'\n'}
	)

	for i, iop := range s.IOs {
		iop := iop
		if err := s.compileGuards(ctx, iop); err != nil {
			return fmt.Errorf("IO %d: %w", i, err)
		}

		timeout := iop.Timeout
		if timeout == 0 {
			timeout = s.DefaultTimeout
		}

		var (
			errs = make(chan error, 4)

			happy    = errors.New("happy")
			timedOut = errors.New("timeout")
			canceled = errors.New("canceled")
		)

		if 0 < timeout {
			t := time.AfterFunc(timeout, func() {
				errs <- timedOut
				errs <- timedOut
			})
			defer t.Stop()
		}

		// Consume output.
		go func() {
			f := func() error {
				need := 0
				for _, o := range iop.OutputSet {
					if !o.Inverted {
						need++
					}
				}

				for 0 < need {
					line, err := out.ReadBytes('\n')
					if err != nil {
						return err
					}

					if s.ShowStdout {
						log.Printf("out %s", line)
					}

					line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte(s.OutputPrefix)))

					var resp sio.Response
					if err = json.Unmarshal(line, &resp); err != nil {
						log.Printf("ignoring '%s'", line)
						continue
					}

					for _, output := range iop.OutputSet {
						if output.Got != nil {
							continue
						}
						ok, err := output.Matches(ctx, &resp)
						if err != nil {
							return err
						}
						if !ok {
							continue
						}
						output.Got = &resp
						if output.Inverted {
							return fmt.Errorf("undesired output %s", JS(output))
						}
						need--
						break
					}
				}

				return nil
			}

			if err := f(); err == nil {
				errs <- happy
			} else {
				errs <- err
			}
		}()

		// Send lines.
		go func() {
			f := func() error {
				s.pause("waitBefore", iop.WaitBefore)

				for i, input := range iop.Inputs {
					if 0 < i {
						s.pause("waitBetween", iop.WaitBetween)
					}

					if s.ShowStdin {
						log.Printf("in %s\n", input)
					}

					if _, err := w.Write([]byte(input)); err != nil {
						return err
					}
					if _, err := w.Write(newline); err != nil {
						return err
					}
				}

				s.pause("waitAfter", iop.WaitAfter)
				return nil
			}

			if err := f(); err == nil {
				errs <- happy
			} else {
				errs <- err
			}
		}()

		// Wait until we are done.

		var (
			happies = 0
			want    = 2
			err     error
		)

	LOOP:
		for happies < want {
			select {
			case <-ctx.Done():
				return canceled
			case err = <-errs:
				switch err {
				case happy:
					happies++
				default:
					break LOOP
				}
			}
		}

		if happies < want {
			return fmt.Errorf("IO %d: %w", i, err)
		}
	}

	return nil
}

func (s *Session) compileGuards(ctx context.Context, iop *IO) error {
	for _, o := range iop.OutputSet {
		if o.GuardSource == nil || o.Guard != nil {
			continue
		}
		guard, err := o.GuardSource.Compile(ctx, s.Interpreters)
		if err != nil {
			return err
		}
		o.Guard = guard
	}
	return nil
}

// Matches reports whether the response satisfies the Output.
func (o *Output) Matches(ctx context.Context, r *sio.Response) (bool, error) {
	if o.Id != "" && o.Id != r.Id {
		return false, nil
	}
	if o.NoMatch && r.Matched() {
		return false, nil
	}
	if o.Intent != "" && o.Intent != r.Intent {
		return false, nil
	}
	if o.Error != "" && !strings.Contains(r.Error, o.Error) {
		return false, nil
	}
	if !subset(o.Slots, r.Slots) || !subset(o.Parameters, r.Parameters) {
		return false, nil
	}
	for k, v := range o.Bindings {
		got, have := r.Bindings[k]
		if !have || !reflect.DeepEqual(Canonical(v), Canonical(got)) {
			return false, nil
		}
	}
	if o.Guard != nil {
		exe, err := o.Guard.Exec(ctx, &intent.Env{
			Intent:     r.Intent,
			Utterance:  r.Utterance,
			Slots:      r.Slots,
			Parameters: r.Parameters,
		})
		if err != nil {
			return false, err
		}
		if exe == nil || exe.Bs == nil {
			return false, nil
		}
	}
	return true, nil
}

func subset(want, got map[string]string) bool {
	for k, v := range want {
		if g, have := got[k]; !have || g != v {
			return false
		}
	}
	return true
}

func (s *Session) pause(why string, d time.Duration) {
	if 0 < d {
		if s.Verbose {
			log.Printf("pause %s %s", why, d)
		}
		time.Sleep(d)
	}
}
