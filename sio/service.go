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
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/util"
	. "github.com/Comcast/voxmatch/util/testutil"
)

// NotReady occurs when a Service is given a Set that hasn't been
// compiled.
var NotReady = errors.New("intent set not compiled")

// ServiceConf provides some basic Service parameters.
type ServiceConf struct {
	// HaltOnInputEOF makes Loop return when the couplings' input
	// is exhausted.
	HaltOnInputEOF bool `json:"haltOnInputEOF,omitempty" yaml:"haltOnInputEOF,omitempty"`

	// ActTimeout, if not zero, bounds the time an intent's action
	// can run.
	ActTimeout time.Duration `json:"actTimeout,omitempty" yaml:"actTimeout,omitempty"`
}

// Service parses requests with the current intent Set and runs the
// matched intent's action.
type Service struct {
	Conf *ServiceConf

	// Verbose turns on logging.
	Verbose bool

	set *intent.Set

	// in receives all in-bound requests.
	in chan *Request

	// out receives all out-bound responses.
	out chan *Response

	// done is closed by Couplings when its input is closed.
	done chan bool

	sync.RWMutex
}

// NewService makes a Service with the given (compiled) Set.
//
// The coupling's IO() method is called to obtain the service's
// channels.  Couplings can be nil for a Service that's only used via
// Process.
func NewService(ctx context.Context, conf *ServiceConf, set *intent.Set, couplings Couplings) (*Service, error) {
	if conf == nil {
		conf = &ServiceConf{}
	}
	s := &Service{
		Conf: conf,
	}
	if err := s.Swap(set); err != nil {
		return nil, err
	}
	if couplings != nil {
		in, out, done, err := couplings.IO(ctx)
		if err != nil {
			return nil, err
		}
		s.in, s.out, s.done = in, out, done
	}
	return s, nil
}

// Set returns the current intent Set.
func (s *Service) Set() *intent.Set {
	s.RLock()
	defer s.RUnlock()
	return s.set
}

// Swap installs a new compiled Set.  Requests in flight finish with
// the old one.
func (s *Service) Swap(set *intent.Set) error {
	if set == nil || !set.IsCompiled() {
		return NotReady
	}
	s.Lock()
	s.set = set
	s.Unlock()
	s.Logf("Service.Swap %d intents", len(set.Intents))
	return nil
}

// Logf logs if s.Verbose or util.Logging.
func (s *Service) Logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf(format, args...)
		return
	}
	util.Logf(format, args...)
}

// Process parses the request's utterance and (unless ParseOnly) runs
// the intent's action.
//
// Failures are reported in the Response's Error.
func (s *Service) Process(ctx context.Context, req *Request) *Response {
	set := s.Set()

	r := &Response{
		Id:        req.Id,
		Utterance: req.Utterance,
	}

	p, err := set.Parse(req.Utterance)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if p == nil {
		s.Logf("Service.Process %s no match", util.Quote(req.Utterance, 60))
		return r
	}

	r.Utterance = p.Utterance
	r.Intent = p.Intent
	r.Phrase = p.Phrase
	r.Slots = p.Slots
	r.Parameters = p.Parameters

	s.Logf("Service.Process %s -> %s %s", util.Quote(req.Utterance, 60), p.Intent, JS(p.Slots))

	if req.ParseOnly {
		return r
	}

	if 0 < s.Conf.ActTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Conf.ActTimeout)
		defer cancel()
	}

	exe, err := set.Act(ctx, p)
	if exe != nil {
		r.Bindings = exe.Bs
		r.Emitted = exe.Emitted
	}
	if err != nil {
		r.Error = err.Error()
	}

	return r
}

// Loop starts the request processing loop in the current goroutine.
//
// This loop calls Process on each request that arrives via the input
// coupling, and the loop halts when ctx.Done().
func (s *Service) Loop(ctx context.Context) error {
	if s.in == nil {
		return errors.New("no couplings")
	}

	s.Logf("Service.Loop starting")
LOOP:
	for {
		select {
		case <-s.done:
			if s.Conf.HaltOnInputEOF {
				s.Logf("Service.Loop shutting down (done)")
				break LOOP
			}
			// Don't select a closed channel forever.
			s.done = nil
		case <-ctx.Done():
			s.Logf("Service.Loop shutting down (ctx.Done)")
			break LOOP
		case req := <-s.in:
			if req == nil {
				break LOOP
			}
			r := s.Process(ctx, req)
			select {
			case <-ctx.Done():
			case s.out <- r:
			}
		}
	}

	s.Logf("Service.Loop done")
	return nil
}
