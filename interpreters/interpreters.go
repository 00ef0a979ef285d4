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

// Package interpreters collects the action interpreters.
package interpreters

import (
	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/interpreters/goja"
	"github.com/Comcast/voxmatch/interpreters/noop"
	"github.com/Comcast/voxmatch/vocab"
)

// Standard returns the interpreters an intent file can name.
//
// The given vocabulary (which can be nil) backs the "match" utility
// that actions can call.
func Standard(v vocab.Vocabulary) map[string]intent.Interpreter {
	is := make(map[string]intent.Interpreter, 4)

	g := goja.NewInterpreter()
	g.Vocabulary = v
	is["goja"] = g
	is["ecmascript"] = g

	is["noop"] = &noop.Interpreter{Silent: true}

	return is
}
