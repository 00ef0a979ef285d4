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

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/util"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given Set: intents point to
// their phrases, and phrases point to the entity types their typed
// slots use.
//
// The Set should be compiled.  Otherwise only intents and phrases
// appear.
func Dot(s *intent.Set, w io.WriteCloser) error {

	util.Logf("processing %d intents", len(s.Intents))

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "10"]
`)

	types := make(map[string]bool)

	for i, in := range s.Intents {
		iid := fmt.Sprintf("i%d", i)
		label := htmlesc(in.Name)
		if in.Doc != "" {
			doc := in.Doc
			if 40 < len(doc) {
				if period := strings.Index(doc, ". "); 0 < period {
					doc = doc[0 : period+1]
				}
			}
			label += "<BR/><FONT POINT-SIZE='8'>" + htmlesc(doc) + "</FONT>"
		}
		shape := "record"
		fillcolor := "#2d93ad"
		if in.ActionSource != nil || in.Action != nil {
			shape = "note"
		}
		style := "filled"
		if len(in.Examples) == 0 {
			style += ",dashed"
		}
		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			iid, shape, style, fillcolor, label)

		compiled := in.Compiled()
		for j, phrase := range in.Phrases {
			pid := fmt.Sprintf("%s_p%d", iid, j)
			fmt.Fprintf(w, "  %s [shape=\"box\", style=\"filled\", fillcolor=\"#99ddc8\", label=<%s> ]\n",
				pid, htmlesc(phrase))

			label := ""
			if j < len(compiled) && 0 < len(compiled[j].Parameters) {
				label = yamlLabel(compiled[j].Parameters)
			}
			fmt.Fprintf(w, "  %s -> %s [ label = <%s> ]\n", iid, pid, label)

			if len(compiled) <= j {
				continue
			}
			m := compiled[j]
			for _, slot := range m.Slots {
				typ, has := m.SlotTypes[slot]
				if !has {
					continue
				}
				types[typ] = true
				fmt.Fprintf(w, "  %s -> %s [ style=\"dotted\" label = <%s> ]\n",
					pid, typeID(typ), htmlesc(slot))
			}
		}
	}

	names := make([]string, 0, len(types))
	for typ := range types {
		names = append(names, typ)
	}
	sort.Strings(names)
	for _, typ := range names {
		fmt.Fprintf(w, "  %s [shape=\"ellipse\", style=\"filled\", fillcolor=\"#52aa5e\", label=<%s> ]\n",
			typeID(typ), htmlesc(typ))
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(s *intent.Set, basename string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(s, dotfile); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// yamlLabel renders parameters as left-aligned YAML lines.
func yamlLabel(ps map[string]string) string {
	bs, err := yaml.Marshal(ps)
	if err != nil {
		return htmlesc(err.Error())
	}
	label := htmlesc(strings.TrimSpace(string(bs)))
	label = strings.Replace(label, "\n", `<BR ALIGN="LEFT"/>`, -1)
	return `<FONT POINT-SIZE="8">` + label + `<BR ALIGN="LEFT"/></FONT>`
}

func typeID(typ string) string {
	return fmt.Sprintf("%q", "type:"+typ)
}

func htmlesc(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}
