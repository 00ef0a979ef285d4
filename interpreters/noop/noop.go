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

// Package noop has an interpreter that ignores its code.
package noop

import (
	"context"
	"log"

	"github.com/Comcast/voxmatch/intent"
)

// Interpreter is an intent.Interpreter which just returns the
// intent's bindings.
type Interpreter struct {
	// Silent, if false, will log a warning on every use.
	Silent bool
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, env *intent.Env, code interface{}, compiled interface{}) (*intent.Execution, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for execution")
	}
	if env == nil {
		return intent.NewExecution(nil), nil
	}
	return intent.NewExecution(env.Bindings()), nil
}
