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

package tools

import (
	"context"
	"fmt"
	"html"
	"io"
	"sort"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/interpreters/noop"
	"github.com/Comcast/voxmatch/vocab"
	. "github.com/Comcast/voxmatch/util/testutil"

	md "github.com/russross/blackfriday/v2"
)

// RenderSetHTML writes an HTML fragment that documents the intents.
//
// If the Set has been compiled, each phrase also shows its pattern
// and slots.
func RenderSetHTML(s *intent.Set, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="setDoc doc">%s</div>`, md.Run([]byte(s.Doc)))

	f(`<div class="intents"><table>`)
	for _, in := range s.Intents {
		f(`<tr class="intent"><td><span id="%s" class="intentName">%s</span></td><td>`,
			html.EscapeString(in.Name), html.EscapeString(in.Name))

		if in.Doc != "" {
			f(`<div class="intentDoc doc">%s</div>`, md.Run([]byte(in.Doc)))
		}

		compiled := in.Compiled()
		f(`<div class="phrases"><table>`)
		for i, phrase := range in.Phrases {
			f(`<tr><td><div class="phraseNum">%d</div></td><td>`, i)
			f(`<code class="phrase">%s</code>`, html.EscapeString(phrase))
			if i < len(compiled) {
				m := compiled[i]
				f(`<table>`)
				f(`<tr><td>pattern</td><td><code>%s</code></td></tr>`, html.EscapeString(m.Pattern))
				if 0 < len(m.Slots) {
					f(`<tr><td>slots</td><td>`)
					for _, slot := range m.Slots {
						typ := m.SlotTypes[slot]
						if typ == "" {
							f(`<span class="slot">%s</span>`, html.EscapeString(slot))
						} else {
							f(`<span class="slot">%s</span>:<span class="entityType">%s</span>`,
								html.EscapeString(slot), html.EscapeString(typ))
						}
					}
					f(`</td></tr>`)
				}
				if 0 < len(m.Parameters) {
					f(`<tr><td>parameters</td><td><code>%s</code></td></tr>`,
						html.EscapeString(JS(m.Parameters)))
				}
				f(`</table>`)
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)

		if 0 < len(in.Examples) {
			f(`<div class="examples"><table>`)
			for _, ex := range in.Examples {
				f(`<tr><td class="utterance">%s</td><td><code>%s</code></td></tr>`,
					html.EscapeString(ex.Utterance), html.EscapeString(JS(sortedSlots(ex.Slots))))
			}
			f(`</table></div>`)
		}

		if in.ActionSource != nil {
			f(`<div class="code"><div class="interpreter">%s</div><pre>%s</pre></div>`,
				html.EscapeString(in.ActionSource.Interpreter),
				html.EscapeString(sourceString(in.ActionSource.Source)))
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderSetPage writes a complete HTML page for the Set.
func RenderSetPage(s *intent.Set, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/intents.css"}
	}

	title := s.Name
	if title == "" {
		title = "intents"
	}
	title = html.EscapeString(title)

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if err := RenderSetHTML(s, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderSetPage reads an intents file, compiles it against the
// vocabulary (without running any real interpreters), and renders the
// page.
func ReadAndRenderSetPage(filename string, v vocab.Vocabulary, cssFiles []string, out io.Writer) error {
	s, err := ReadSetFile(filename)
	if err != nil {
		return err
	}

	if err = CompileQuietly(context.Background(), s, v); err != nil {
		return err
	}

	return RenderSetPage(s, out, cssFiles)
}

// CompileQuietly compiles the Set with every action going to a silent
// noop interpreter.  Good enough for tools that don't act.
func CompileQuietly(ctx context.Context, s *intent.Set, v vocab.Vocabulary) error {
	quiet := &noop.Interpreter{Silent: true}
	interpreters := make(map[string]intent.Interpreter, len(s.Intents))
	for _, in := range s.Intents {
		if in != nil && in.ActionSource != nil {
			interpreters[in.ActionSource.Interpreter] = quiet
		}
	}
	return s.Compile(ctx, v, interpreters)
}

func sourceString(x interface{}) string {
	if s, is := x.(string); is {
		return s
	}
	return JS(x)
}

// sortedSlots gives a stable rendering of an example's slots.
func sortedSlots(m map[string]string) []string {
	acc := make([]string, 0, len(m))
	for k, v := range m {
		acc = append(acc, k+"="+v)
	}
	sort.Strings(acc)
	return acc
}
