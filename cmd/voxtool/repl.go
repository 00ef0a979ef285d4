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
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Comcast/voxmatch/core"
	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/util"
	. "github.com/Comcast/voxmatch/util/testutil"
	"github.com/Comcast/voxmatch/vocab"
)

// REPL reads commands, one per line, and writes what they produce.
type REPL struct {
	Opts  *Opts
	Set   *intent.Set
	Vocab vocab.Map
	Echo  bool

	// OutputPrefix starts each output line.
	OutputPrefix string
}

func replDoc() string {
	return `Commands:

  parse UTTERANCE      parse the utterance
  act UTTERANCE        parse the utterance and run its intent's action
  compile TEMPLATE     compile the template and show the result
  intents              list the intents
  types                list the entity types
  type TYPE            show the phrases for the entity type
  reload               reload the intents and vocabulary
  debug on|off         turn logging on or off
  help                 this message

A line that isn't a command is parsed.  Lines starting with '#' are
ignored.`
}

var (
	replHelp    = regexp.MustCompile(`^(help|h|\?)$`)
	replParse   = regexp.MustCompile(`^parse +(.*)`)
	replAct     = regexp.MustCompile(`^act +(.*)`)
	replCompile = regexp.MustCompile(`^compile +(.*)`)
	replIntents = regexp.MustCompile(`^intents$`)
	replTypes   = regexp.MustCompile(`^types$`)
	replType    = regexp.MustCompile(`^type +(\S+)$`)
	replReload  = regexp.MustCompile(`^reload$`)
	replDebug   = regexp.MustCompile(`^debug(ging)? +(on|off)$`)
)

// Run processes lines until EOF.
func (r *REPL) Run(ctx context.Context, in io.Reader, w io.Writer) error {
	if r.OutputPrefix == "" {
		r.OutputPrefix = "# "
	}

	var (
		say = func(format string, args ...interface{}) {
			fmt.Fprintf(w, r.OutputPrefix+format+"\n", args...)
		}

		protest = func(format string, args ...interface{}) {
			say("error: "+format, args...)
		}

		parse = func(utterance string, act bool) {
			p, err := r.Set.Parse(utterance)
			if err != nil {
				protest("%s", err)
				return
			}
			if p == nil {
				say("no match")
				return
			}
			say("%s", JS(p))
			if !act {
				return
			}
			exe, err := r.Set.Act(ctx, p)
			if err != nil {
				protest("%s", err)
				return
			}
			say("bindings %s", JS(exe.Bs))
			for _, x := range exe.Emitted {
				say("emitted %s", JS(x))
			}
		}
	)

	lines := bufio.NewReader(in)
	for {
		line, err := lines.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF

		line = strings.TrimSpace(line)

		if r.Echo && line != "" {
			fmt.Fprintln(w, line)
		}

		var ss []string

		switch {
		case line == "" || strings.HasPrefix(line, "#"):

		case replHelp.MatchString(line):
			for _, s := range strings.Split(replDoc(), "\n") {
				say("%s", s)
			}

		case replIntents.MatchString(line):
			for _, in := range r.Set.Intents {
				say("%s (%d phrases)", in.Name, len(in.Phrases))
			}

		case replTypes.MatchString(line):
			for _, t := range r.Vocab.Types() {
				say("%s", t)
			}

		case replReload.MatchString(line):
			if r.Opts == nil {
				protest("nothing to reload from")
				break
			}
			s, v, err := r.Opts.load(ctx, true)
			if err != nil {
				protest("reload failed: %s", err)
				break
			}
			r.Set, r.Vocab = s, v
			say("reloaded %d intents", len(s.Intents))

		default:
			if ss = replType.FindStringSubmatch(line); 0 < len(ss) {
				phrases, have := r.Vocab.Lookup(ss[1])
				if !have {
					protest("unknown entity type '%s'", ss[1])
					break
				}
				say("%s", JS(phrases))
				break
			}
			if ss = replDebug.FindStringSubmatch(line); 0 < len(ss) {
				util.Logging = ss[2] == "on"
				say("debugging %s", ss[2])
				break
			}
			if ss = replCompile.FindStringSubmatch(line); 0 < len(ss) {
				m, err := core.Compile(ss[1], r.Vocab)
				if err != nil {
					protest("%s", err)
					break
				}
				say("%s", JS(m))
				break
			}
			if ss = replAct.FindStringSubmatch(line); 0 < len(ss) {
				parse(ss[1], true)
				break
			}
			if ss = replParse.FindStringSubmatch(line); 0 < len(ss) {
				parse(ss[1], false)
				break
			}
			parse(line, false)
		}

		if eof {
			return nil
		}
	}
}
