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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/util"
)

type MermaidOpts struct {
	// ShowPatterns adds each phrase's compiled pattern to its
	// node.
	ShowPatterns bool `json:"showPatterns"`

	// ActionFill is the fill color of for intents with actions.
	ActionFill string `json:"actionFill,omitempty"`

	// EntityTypes adds nodes for the entity types that typed slots
	// use.
	EntityTypes bool `json:"entityTypes,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given Set.
func Mermaid(s *intent.Set, w io.WriteCloser, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ActionFill:  "#bcf2db",
			EntityTypes: true,
		}
	}

	util.Logf("mermaid processing %d intents", len(s.Intents))

	fmt.Fprintf(w, "graph LR\n")

	tids := make(map[string]string)
	typeNode := func(typ string) string {
		if tid, already := tids[typ]; already {
			return tid
		}
		tid := fmt.Sprintf("t%d", len(tids)+1)
		tids[typ] = tid
		fmt.Fprintf(w, "  %s{{\"%s\"}}\n", tid, mermaidesc(typ))
		return tid
	}

	for i, in := range s.Intents {
		iid := fmt.Sprintf("i%d", i)
		fmt.Fprintf(w, "  %s(\"%s\")\n", iid, mermaidesc(in.Name))
		if (in.Action != nil || in.ActionSource != nil) && opts.ActionFill != "" {
			fmt.Fprintf(w, "  style %s fill:%s\n", iid, opts.ActionFill)
		}

		compiled := in.Compiled()
		for j, phrase := range in.Phrases {
			pid := fmt.Sprintf("%s_p%d", iid, j)
			label := mermaidesc(phrase)
			if opts.ShowPatterns && j < len(compiled) {
				label += "<br/><code>" + mermaidesc(compiled[j].Pattern) + "</code>"
			}
			fmt.Fprintf(w, "  %s[\"%s\"]\n", pid, label)
			fmt.Fprintf(w, "  %s --> %s\n", iid, pid)

			if !opts.EntityTypes || len(compiled) <= j {
				continue
			}
			m := compiled[j]
			for _, slot := range m.Slots {
				if typ, has := m.SlotTypes[slot]; has {
					fmt.Fprintf(w, "  %s -. %s .-> %s\n", pid, mermaidesc(slot), typeNode(typ))
				}
			}
		}
	}

	fmt.Fprintf(w, "\n")
	util.Logf("mermaid gen done")

	return w.Close()
}

func mermaidesc(s string) string {
	return strings.Replace(s, `"`, "#quot;", -1)
}
