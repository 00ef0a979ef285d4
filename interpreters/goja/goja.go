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

// Package goja runs intent actions written in ECMAScript.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Comcast/voxmatch/core"
	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/match"
	"github.com/Comcast/voxmatch/vocab"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// init adds an Interpreter as one of the DefaultInterpreters.
func init() {
	intent.DefaultInterpreters["goja"] = NewInterpreter()
}

// Interpreter implements intent.Interpreter using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// Vocabulary is used by the "match" utility.  Defaults to
	// vocab.Standard().
	Vocabulary vocab.Vocabulary

	// LibraryProvider resolves a library name into source.  If
	// nil, DefaultLibraryProvider is used.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a provider that supports (barely)
// names that are URLs with protocols of "file", "http", and "https".
// File names are relative to dir.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			if strings.Contains(parts[1], "..") {
				return "", fmt.Errorf("bad library path '%s'", parts[1])
			}
			bs, err := ioutil.ReadFile(dir + "/" + parts[1])
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequest("GET", name, nil)
			if err != nil {
				return "", err
			}
			req = req.WithContext(ctx)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("library fetch status %s %d",
					resp.Status, resp.StatusCode)
			}
			bs, err := ioutil.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	s, is := x.(string)
	if !is {
		err = errors.New("bad Goja action code")
		return
	}
	code = s

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// AsSource accepts either plain code or a map with "code" and
// "requires".
//
// Maps from YAML can have interface{} keys, so those are accepted
// too.
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile prepends any required libraries and calls goja.Compile.
//
// This method can block if the interpreter's LibraryProvider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	code = wrapSrc(code)

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + code

	obj, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return obj, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// alphabet is used by gensym.
var alphabet = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func gensym(n int) string {
	bs := make([]byte, n)
	for i := range bs {
		bs[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(bs)
}

func asString(o *goja.Runtime, x interface{}) string {
	if v, is := x.(goja.Value); is {
		x = v.Export()
	}
	s, is := x.(string)
	if !is {
		protest(o, "not a string")
	}
	return s
}

// Exec implements the Interpreter method of the same name.
//
// The following properties are available from the runtime at _.
//
//	intent: the name of the matched intent.
//	utterance: the normalized utterance.
//	slots: the slot bindings.
//	params: the template's static parameters.
//	bindings: slots and params together.
//	out(obj): add the given object as a message to emit.
//
// Some useful utilities:
//
//	gensym(): generate a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time (RFC3339) for the cron expression.
//	match(template, utterance): compile the template and match.
//	log(x): log x as JSON.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
//
// The code should return an object, which becomes the Execution's
// bindings.
func (i *Interpreter) Exec(ctx context.Context, ienv *intent.Env, src interface{}, compiled interface{}) (*intent.Execution, error) {
	exe := intent.NewExecution(nil)

	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return exe, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return exe, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	env := map[string]interface{}{
		"ctx": ctx,
	}
	if ienv == nil {
		ienv = &intent.Env{}
	}
	env["intent"] = ienv.Intent
	env["utterance"] = ienv.Utterance
	env["slots"] = stringMap(ienv.Slots)
	env["params"] = stringMap(ienv.Parameters)
	env["bindings"] = ienv.Bindings()

	o := goja.New()

	o.Set("_", env)

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["gensym"] = func() interface{} {
		return gensym(32)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		c, err := cronexpr.Parse(asString(o, x))
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["esc"] = func(x interface{}) interface{} {
		return url.QueryEscape(asString(o, x))
	}

	// "out" adds the given message to the list of messages to
	// emit.
	env["out"] = func(x interface{}) interface{} {
		if v, is := x.(goja.Value); is {
			x = v.Export()
		}
		y, err := canonicalize(x)
		if err != nil {
			protest(o, err.Error())
		}
		exe.AddEmitted(y)
		return x
	}

	env["log"] = func(x interface{}) interface{} {
		if v, is := x.(goja.Value); is {
			x = v.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("goja.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	}

	// match compiles a template and matches an utterance.  Returns
	// the slot bindings or null.
	env["match"] = func(template, utterance goja.Value) interface{} {
		v := i.Vocabulary
		if v == nil {
			v = vocab.Standard()
		}
		cm, err := core.Compile(asString(o, template), v)
		if err != nil {
			protest(o, err.Error())
		}
		r, err := match.Match(cm, asString(o, utterance))
		if err != nil {
			protest(o, err.Error())
		}
		if r == nil {
			return nil
		}
		return stringMap(r.Slots)
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If Exec calls cancel() after RunProgram returns, this
		// interrupt is harmless.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	switch vv := v.Export().(type) {
	case map[string]interface{}:
		exe.Bs = vv
	case nil:
	default:
		return nil, fmt.Errorf("%#v (%T) isn't a map", vv, vv)
	}

	return exe, nil
}

// stringMap converts to the map type that Goja exposes as a plain
// object.
func stringMap(m map[string]string) map[string]interface{} {
	acc := make(map[string]interface{}, len(m))
	for k, v := range m {
		acc[k] = v
	}
	return acc
}

// canonicalize round-trips through JSON so emitted messages are
// plain maps, slices, strings, float64s, and bools.
func canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}
