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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/voxmatch/vocab"
	"github.com/Comcast/voxmatch/vocab/bolt"

	"github.com/jsccast/yaml"
)

// vocabCmd maintains the vocabulary database.
//
//	list                      entity types and their phrase counts
//	get TYPE                  the phrases, one per line
//	put TYPE PHRASE ...       replace the type's phrases
//	rm TYPE                   remove the type
//	import FILENAME           put every type from a vocabulary file
//	export                    write the database as a vocabulary file
func (opts *Opts) vocabCmd(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("vocab needs a subcommand")
	}

	need := func(n int, what string) error {
		if len(args)-1 < n {
			return fmt.Errorf("vocab %s needs %s", args[0], what)
		}
		return nil
	}

	switch args[0] {
	case "list":
		return opts.withStorage(ctx, func(s *bolt.Storage) error {
			m, err := s.Snapshot(ctx)
			if err != nil {
				return err
			}
			for _, t := range m.Types() {
				fmt.Fprintf(out, "%s\t%d\n", t, len(m[t]))
			}
			return nil
		})

	case "get":
		if err := need(1, "a TYPE"); err != nil {
			return err
		}
		return opts.withStorage(ctx, func(s *bolt.Storage) error {
			phrases, err := s.Get(ctx, args[1])
			if err != nil {
				return err
			}
			if phrases == nil {
				return fmt.Errorf("unknown entity type '%s'", args[1])
			}
			for _, p := range phrases {
				fmt.Fprintf(out, "%s\n", p)
			}
			return nil
		})

	case "put":
		if err := need(1, "a TYPE"); err != nil {
			return err
		}
		phrases := make([]string, 0, len(args)-2)
		for _, p := range args[2:] {
			phrases = append(phrases, strings.TrimSpace(p))
		}
		return opts.withStorage(ctx, func(s *bolt.Storage) error {
			return s.Put(ctx, args[1], phrases)
		})

	case "rm":
		if err := need(1, "a TYPE"); err != nil {
			return err
		}
		return opts.withStorage(ctx, func(s *bolt.Storage) error {
			return s.Remove(ctx, args[1])
		})

	case "import":
		if err := need(1, "a FILENAME"); err != nil {
			return err
		}
		m, err := vocab.ReadFile(args[1])
		if err != nil {
			return err
		}
		return opts.withStorage(ctx, func(s *bolt.Storage) error {
			if err := s.Import(ctx, m); err != nil {
				return err
			}
			fmt.Fprintf(out, "imported %d entity types\n", len(m))
			return nil
		})

	case "export":
		return opts.withStorage(ctx, func(s *bolt.Storage) error {
			m, err := s.Snapshot(ctx)
			if err != nil {
				return err
			}
			bs, err := yaml.Marshal(map[string][]string(m))
			if err != nil {
				return err
			}
			_, err = out.Write(bs)
			return err
		})

	default:
		return fmt.Errorf("unknown vocab subcommand '%s'", args[0])
	}
}
