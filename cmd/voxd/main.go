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

// Package main is a parse service that reads utterances from stdin,
// an MQTT broker, a WebSocket, or HTTP requests and answers with the
// matched intent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/interpreters"
	"github.com/Comcast/voxmatch/sio"
	"github.com/Comcast/voxmatch/tools"
	"github.com/Comcast/voxmatch/util"
	"github.com/Comcast/voxmatch/vocab"
	"github.com/Comcast/voxmatch/vocab/bolt"
)

func main() {

	var (
		coupling    = flag.String("io", "std", `IO protocol: "std", "mq", "ws", or "httpd"`)
		intentsFile = flag.String("intents", "intents.yaml", "Intents filename")
		vocabFile   = flag.String("vocab", "", "Optional vocabulary (YAML) filename")
		vocabDB     = flag.String("vocab-db", "", "Optional vocabulary database (bolt) filename")
		noStd       = flag.Bool("no-std-vocab", false, "Don't include the built-in vocabulary")
		reload      = flag.String("reload", "", "Optional cron expression for reloading intents and vocabulary")
		actTimeout  = flag.Duration("act-timeout", 5*time.Second, "Limit on an intent's action")

		wait      = flag.Duration("wait", time.Second, "Wait this long before shutting down couplings")
		haltOnEOF = flag.Bool("halt-on-eof", false, "Stop on input EOF")
		verbose   = flag.Bool("v", false, "Verbose")
		help      = flag.Bool("h", false, "Get usage")
	)

	flag.Parse()

	if *help {
		flag.PrintDefaults()

		{
			fmt.Fprintf(os.Stderr, "\n-io std (default):\n\n")
			_, fs := NewStdCouplings(nil)
			fs.PrintDefaults()
		}

		{
			fmt.Fprintf(os.Stderr, "\n-io mq:\n\n")
			_, fs := NewMQTTCouplings(nil)
			fs.PrintDefaults()
		}

		{
			fmt.Fprintf(os.Stderr, "\n-io ws:\n\n")
			_, fs := NewWebSocketCouplings(nil)
			fs.PrintDefaults()
		}

		{
			fmt.Fprintf(os.Stderr, "\n-io httpd:\n\n")
			_, fs := NewHTTPDCouplings(nil)
			fs.PrintDefaults()
		}

		os.Exit(0)
	}

	util.Logging = *verbose

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := &loader{
		intentsFile: *intentsFile,
		vocabFile:   *vocabFile,
		vocabDB:     *vocabDB,
		std:         !*noStd,
	}

	set, err := l.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// A nil args means "just give me the FlagSet".
	args := append([]string{}, flag.Args()...)

	var cio sio.Couplings
	switch *coupling {
	case "std":
		c, _ := NewStdCouplings(args)
		cio = c
	case "mq", "mqtt":
		c, _ := NewMQTTCouplings(args)
		cio = c
	case "ws":
		c, _ := NewWebSocketCouplings(args)
		cio = c
	case "httpd", "http":
		c, _ := NewHTTPDCouplings(args)
		cio = c
	default:
		log.Fatalf("unknown io: '%s'", *coupling)
	}

	if err := cio.Start(ctx); err != nil {
		log.Fatal(err)
	}

	conf := &sio.ServiceConf{
		HaltOnInputEOF: *haltOnEOF,
		ActTimeout:     *actTimeout,
	}

	svc, err := sio.NewService(ctx, conf, set, cio)
	if err != nil {
		log.Fatal(err)
	}
	svc.Verbose = *verbose

	// The HTTP couplings can process requests synchronously.
	if h, is := cio.(*HTTPDCouplings); is {
		h.SetService(svc)
	}

	if *reload != "" {
		r, err := sio.NewReloader(*reload, svc, l.Load)
		if err != nil {
			log.Fatal(err)
		}
		go func() {
			if err := r.Run(ctx); err != nil {
				log.Printf("reloader stopped: %s", err)
			}
		}()
	}

	go func() {
		if std, is := cio.(*sio.Stdio); is {
			<-std.InputEOF
			log.Printf("input EOF (waiting %v)", *wait)
			time.Sleep(*wait)
			cancel()
		}
	}()

	if err := svc.Loop(ctx); err != nil {
		log.Fatal(err)
	}

	cancel()

	if err = cio.Stop(context.Background()); err != nil {
		log.Printf("error from io.Stop: %v", err)
	}
}

// loader reads the vocabulary and the intents and compiles them.  Its
// Load method is an sio.Loader.
type loader struct {
	intentsFile string
	vocabFile   string
	vocabDB     string
	std         bool
}

// Vocabulary merges the built-in vocabulary, the file, and the
// database (in that order).
func (l *loader) Vocabulary(ctx context.Context) (vocab.Map, error) {
	var ms []vocab.Map
	if l.std {
		ms = append(ms, vocab.Standard())
	}
	if l.vocabFile != "" {
		m, err := vocab.ReadFile(l.vocabFile)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	if l.vocabDB != "" {
		s, err := bolt.NewStorage(l.vocabDB)
		if err != nil {
			return nil, err
		}
		if err = s.Open(ctx); err != nil {
			return nil, err
		}
		m, err := s.Snapshot(ctx)
		if cerr := s.Close(ctx); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return vocab.Merge(ms...), nil
}

func (l *loader) Load(ctx context.Context) (*intent.Set, error) {
	v, err := l.Vocabulary(ctx)
	if err != nil {
		return nil, err
	}
	set, err := tools.ReadSetFile(l.intentsFile)
	if err != nil {
		return nil, err
	}
	if err = set.Compile(ctx, v, interpreters.Standard(v)); err != nil {
		return nil, err
	}
	util.Logf("loaded %d intents with %d entity types", len(set.Intents), len(v))
	return set, nil
}
