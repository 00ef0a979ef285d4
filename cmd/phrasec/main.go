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

// Package main is a little command-line utility to compile (and
// optionally try) a template.
//
//	phrasec -t 'open [app:serviceName] {please}' -u 'open google drive please'
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/Comcast/voxmatch/core"
	"github.com/Comcast/voxmatch/match"
	"github.com/Comcast/voxmatch/vocab"

	"gopkg.in/yaml.v2"
)

func main() {
	var (
		template  = flag.String("t", "", "template")
		vocabFile = flag.String("v", "", "optional vocabulary (YAML) file to add to the built-in one")
		utterance = flag.String("u", "", "optional utterance to match")
		asYAML    = flag.Bool("yaml", false, "print YAML instead of JSON")
		strict    = flag.Bool("strict", false, "match case-sensitively and don't collapse whitespace")

		bench = flag.Int("bench", 0, "number of times to compile (and report time)")
	)

	flag.Parse()

	v := vocab.Standard()
	if *vocabFile != "" {
		more, err := vocab.ReadFile(*vocabFile)
		if err != nil {
			log.Fatal(err)
		}
		v = vocab.Merge(v, more)
	}

	if 0 < *bench {
		benchmark(*template, v, *bench)
	}

	m, err := core.Compile(*template, v)
	if err != nil {
		explain(os.Stderr, err)
		os.Exit(1)
	}

	out := map[string]interface{}{
		"matcher": m,
	}

	if *utterance != "" {
		matcher := match.DefaultMatcher
		if *strict {
			matcher = &match.Matcher{}
		}
		p, err := matcher.Prepare(m)
		if err != nil {
			explain(os.Stderr, err)
			os.Exit(1)
		}
		r, err := p.Match(*utterance)
		if err != nil {
			log.Fatal(err)
		}
		out["match"] = r
	}

	if err = render(os.Stdout, out, *asYAML); err != nil {
		log.Fatal(err)
	}
}

// explain writes a compilation error with a hint about its kind.
func explain(w io.Writer, err error) {
	var (
		u *core.UnknownEntityType
		f *core.MalformedFragment
		d *core.DuplicateSlot
		p *core.InvalidPattern
	)
	switch {
	case errors.As(err, &u):
		fmt.Fprintf(w, "unknown entity type %q (try -v)\n", u.EntityType)
	case errors.As(err, &f):
		fmt.Fprintf(w, "can't parse %q\n", f.Fragment)
	case errors.As(err, &d):
		fmt.Fprintf(w, "slot %q appears more than once\n", d.Slot)
	case errors.As(err, &p):
		fmt.Fprintf(w, "bad pattern %q: %v\n", p.Pattern, p.Err)
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func render(w io.Writer, x interface{}, asYAML bool) error {
	var (
		bs  []byte
		err error
	)
	if asYAML {
		bs, err = yaml.Marshal(x)
	} else {
		bs, err = json.MarshalIndent(x, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", bs)
	return err
}

func benchmark(template string, v vocab.Vocabulary, n int) {
	c := core.NewCompiler(v)

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	allocs := stats.TotalAlloc
	then := time.Now()
	for i := 0; i < n; i++ {
		if _, err := c.Compile(template); err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Now().Sub(then)
	meanNanos := elapsed.Nanoseconds() / int64(n)

	runtime.ReadMemStats(&stats)
	allocated := (stats.TotalAlloc - allocs) / uint64(n)

	log.Printf("%d iterations, %d mean ns/Compile, %d mean bytes allocated per Compile", n, meanNanos, allocated)
}
