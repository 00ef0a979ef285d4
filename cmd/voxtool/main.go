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

// Package main is a command-line tool for working with intent sets
// and vocabularies: rendering, checking, analyzing, interactive
// parsing, expect-style testing, and vocabulary database maintenance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/interpreters"
	"github.com/Comcast/voxmatch/tools"
	"github.com/Comcast/voxmatch/tools/expect"
	"github.com/Comcast/voxmatch/util"
	"github.com/Comcast/voxmatch/vocab"
	"github.com/Comcast/voxmatch/vocab/bolt"

	"github.com/jsccast/yaml"
)

var usage = `Usage: voxtool [flags] COMMAND [args]

Commands:

  html [-css a.css,b.css]    render the intents as an HTML page
  dot                        render the intents as Graphviz dot
  png BASENAME               render BASENAME.dot and BASENAME.png
  mermaid [-patterns]        render the intents as a Mermaid flowchart
  check                      check every intent's examples
  analyze                    summarize the intents as JSON
  repl                       parse utterances interactively
  expect [-f F] [-d D] [-t T] CMD ARGS...
                             run an expect session against a service
  vocab list|get|put|rm|import|export ...
                             maintain the vocabulary database

Flags:
`

// Opts are the global flags.
type Opts struct {
	IntentsFile string
	VocabFile   string
	VocabDB     string
	NoStd       bool
	Verbose     bool
}

func main() {
	opts := &Opts{}
	flag.StringVar(&opts.IntentsFile, "intents", "intents.yaml", "intents filename")
	flag.StringVar(&opts.VocabFile, "vocab", "", "optional vocabulary (YAML) filename")
	flag.StringVar(&opts.VocabDB, "vocab-db", "", "optional vocabulary database (bolt) filename")
	flag.BoolVar(&opts.NoStd, "no-std-vocab", false, "don't include the built-in vocabulary")
	flag.BoolVar(&opts.Verbose, "v", false, "verbose")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	util.Logging = opts.Verbose

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := opts.run(ctx, args[0], args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// nopCloser makes a WriteCloser that doesn't close the underlying
// Writer.
type nopCloser struct {
	io.Writer
}

func (c nopCloser) Close() error {
	return nil
}

// Vocabulary merges the built-in vocabulary, the file, and the
// database.
func (opts *Opts) Vocabulary(ctx context.Context) (vocab.Map, error) {
	var ms []vocab.Map
	if !opts.NoStd {
		ms = append(ms, vocab.Standard())
	}
	if opts.VocabFile != "" {
		m, err := vocab.ReadFile(opts.VocabFile)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	if opts.VocabDB != "" {
		err := opts.withStorage(ctx, func(s *bolt.Storage) error {
			m, err := s.Snapshot(ctx)
			if err == nil {
				ms = append(ms, m)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return vocab.Merge(ms...), nil
}

func (opts *Opts) withStorage(ctx context.Context, f func(*bolt.Storage) error) error {
	if opts.VocabDB == "" {
		return fmt.Errorf("no vocabulary database (-vocab-db)")
	}
	s, err := bolt.NewStorage(opts.VocabDB)
	if err != nil {
		return err
	}
	if err = s.Open(ctx); err != nil {
		return err
	}
	err = f(s)
	if cerr := s.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// load reads and compiles the intents.  Actions are compiled
// quietly unless act is true.
func (opts *Opts) load(ctx context.Context, act bool) (*intent.Set, vocab.Map, error) {
	v, err := opts.Vocabulary(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, err := tools.ReadSetFile(opts.IntentsFile)
	if err != nil {
		return nil, nil, err
	}
	if act {
		err = s.Compile(ctx, v, interpreters.Standard(v))
	} else {
		err = tools.CompileQuietly(ctx, s, v)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, v, nil
}

func (opts *Opts) run(ctx context.Context, cmd string, args []string, in io.Reader, out io.Writer) error {
	switch cmd {
	case "html":
		fs := flag.NewFlagSet("html", flag.ContinueOnError)
		css := fs.String("css", "", "comma-separated CSS filenames")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, _, err := opts.load(ctx, false)
		if err != nil {
			return err
		}
		var cssFiles []string
		if *css != "" {
			cssFiles = strings.Split(*css, ",")
		}
		return tools.RenderSetPage(s, out, cssFiles)

	case "dot":
		s, _, err := opts.load(ctx, false)
		if err != nil {
			return err
		}
		return tools.Dot(s, nopCloser{out})

	case "png":
		if len(args) != 1 {
			return fmt.Errorf("png needs a BASENAME")
		}
		s, _, err := opts.load(ctx, false)
		if err != nil {
			return err
		}
		filename, err := tools.PNG(s, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", filename)
		return nil

	case "mermaid":
		fs := flag.NewFlagSet("mermaid", flag.ContinueOnError)
		mo := &tools.MermaidOpts{}
		fs.BoolVar(&mo.ShowPatterns, "patterns", false, "show compiled patterns")
		fs.BoolVar(&mo.EntityTypes, "types", true, "show entity types")
		fs.StringVar(&mo.ActionFill, "action-fill", "", "fill color for intents with actions")
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, _, err := opts.load(ctx, false)
		if err != nil {
			return err
		}
		return tools.Mermaid(s, nopCloser{out}, mo)

	case "check":
		s, _, err := opts.load(ctx, false)
		if err != nil {
			return err
		}
		fs, err := tools.CheckExamples(s)
		if err != nil {
			return err
		}
		for _, f := range fs {
			fmt.Fprintf(out, "%s\n", f)
		}
		if 0 < len(fs) {
			return fmt.Errorf("%d example(s) failed", len(fs))
		}
		fmt.Fprintf(out, "ok\n")
		return nil

	case "analyze":
		s, v, err := opts.load(ctx, false)
		if err != nil {
			return err
		}
		a, err := tools.Analyze(s, v)
		if err != nil {
			return err
		}
		js, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", js)
		return nil

	case "repl":
		s, v, err := opts.load(ctx, true)
		if err != nil {
			return err
		}
		r := &REPL{
			Opts:  opts,
			Set:   s,
			Vocab: v,
			Echo:  false,
		}
		return r.Run(ctx, in, out)

	case "expect":
		return runExpect(ctx, args)

	case "vocab":
		return opts.vocabCmd(ctx, args, out)

	default:
		return fmt.Errorf("unknown command '%s'", cmd)
	}
}

// runExpect runs an expect session (a YAML file) against a
// subprocess, which is usually "voxd -io std ...".
func runExpect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("expect", flag.ContinueOnError)
	var (
		filename   = fs.String("f", "session.yaml", "filename for the session")
		dir        = fs.String("d", ".", "working directory")
		showStderr = fs.Bool("e", true, "show subprocess stderr")
		timeout    = fs.Duration("t", 10*time.Second, "main timeout")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("expect needs a command to run")
	}

	bs, err := ioutil.ReadFile(*filename)
	if err != nil {
		return err
	}

	var s expect.Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return err
	}

	s.Interpreters = interpreters.Standard(vocab.Standard())
	s.ShowStderr = *showStderr

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	return s.Run(ctx, *dir, fs.Args()...)
}
