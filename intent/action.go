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

package intent

import (
	"context"
	"errors"

	"github.com/Comcast/voxmatch/match"
)

var (
	// InterpreterNotFound occurs when you try to Compile an
	// ActionSource, and the required interpreter isn't in the
	// given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used in ActionSource.Compile if
	// given nil interpreters.
	DefaultInterpreters = make(map[string]Interpreter)
)

// Env is what an Action gets to see: the intent that matched and
// what the match bound.
type Env struct {
	Intent     string            `json:"intent"`
	Utterance  string            `json:"utterance"`
	Slots      match.Bindings    `json:"slots"`
	SlotTypes  map[string]string `json:"slotTypes,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Bindings returns the slots and parameters as one map.  A slot
// shadows a parameter with the same name.
func (e *Env) Bindings() map[string]interface{} {
	acc := make(map[string]interface{}, len(e.Slots)+len(e.Parameters))
	for p, v := range e.Parameters {
		acc[p] = v
	}
	for s, v := range e.Slots {
		acc[s] = v
	}
	return acc
}

// Execution is the result of running an Action.
type Execution struct {
	// Bs is what the Action returned.
	Bs map[string]interface{} `json:"bs,omitempty"`

	// Emitted holds the messages the Action emitted, in order.
	Emitted []interface{} `json:"emitted,omitempty"`
}

func NewExecution(bs map[string]interface{}) *Execution {
	return &Execution{
		Bs:      bs,
		Emitted: make([]interface{}, 0, 2),
	}
}

// AddEmitted adds the given thing to the list of emitted messages.
func (e *Execution) AddEmitted(x interface{}) {
	e.Emitted = append(e.Emitted, x)
}

// Interpreter can optionally compile and execute code for Actions.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code.  The result of previous Compile()
	// might be provided.
	Exec(ctx context.Context, env *Env, code interface{}, compiled interface{}) (*Execution, error)
}

// Action handles a matched intent.
type Action interface {
	Exec(context.Context, *Env) (*Execution, error)
}

// FuncAction is an Action implemented by a Go function.
type FuncAction struct {
	F func(context.Context, *Env) (*Execution, error)
}

// Exec runs the function.  A nil FuncAction returns the Env's
// bindings.
func (a *FuncAction) Exec(ctx context.Context, env *Env) (*Execution, error) {
	if a == nil || a.F == nil {
		return NewExecution(env.Bindings()), nil
	}
	exe, err := a.F(ctx, env)
	if exe == nil {
		exe = NewExecution(nil)
	}
	return exe, err
}

// ActionSource can be compiled to an Action.
type ActionSource struct {
	Interpreter string      `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	Source      interface{} `json:"source" yaml:"source"`
}

// Copy makes a shallow copy.
func (a *ActionSource) Copy() *ActionSource {
	if a == nil {
		return nil
	}
	return &ActionSource{
		Interpreter: a.Interpreter,
		Source:      a.Source,
	}
}

// Compile attempts to compile the ActionSource into an Action using
// the given interpreters, which defaults to DefaultInterpreters.
func (a *ActionSource) Compile(ctx context.Context, interpreters map[string]Interpreter) (Action, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, have := interpreters[a.Interpreter]
	if !have {
		return nil, InterpreterNotFound
	}

	x, err := interpreter.Compile(ctx, a.Source)
	if err != nil {
		return nil, err
	}

	return &FuncAction{
		F: func(ctx context.Context, env *Env) (*Execution, error) {
			return interpreter.Exec(ctx, env, a.Source, x)
		},
	}, nil
}
