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
	"io/ioutil"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Comcast/voxmatch/intent"
	"github.com/Comcast/voxmatch/util"
)

var inlinePattern = regexp.MustCompile(`%inline *\("([^"]*)"\)`)

// Inline replaces each '%inline("NAME")' with f(NAME).
//
// Intent files use this to keep long action sources in their own
// files.
func Inline(bs []byte, f func(string) ([]byte, error)) ([]byte, error) {
	var (
		acc  = make([]byte, 0, len(bs))
		last = 0
	)
	for _, loc := range inlinePattern.FindAllSubmatchIndex(bs, -1) {
		name := string(bs[loc[2]:loc[3]])
		replacement, err := f(name)
		if err != nil {
			return nil, fmt.Errorf("inlining %q: %w", name, err)
		}
		util.Logf("inlining %s (%d bytes)", name, len(replacement))
		acc = append(acc, bs[last:loc[0]]...)
		acc = append(acc, replacement...)
		last = loc[1]
	}
	return append(acc, bs[last:]...), nil
}

// DirInliner returns an Inline function that reads names relative to
// dir.  Names that climb out of dir are refused.
func DirInliner(dir string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		if filepath.IsAbs(name) || strings.Contains(name, "..") {
			return nil, fmt.Errorf("bad inline name %q", name)
		}
		return ioutil.ReadFile(filepath.Join(dir, name))
	}
}

// ReadFileWithInlines is ioutil.ReadFile plus Inline()ing relative to
// the file's directory.
func ReadFileWithInlines(filename string) ([]byte, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Inline(bs, DirInliner(filepath.Dir(filename)))
}

// ReadSetFile reads an intents file (with inlines).  The Set isn't
// compiled.
func ReadSetFile(filename string) (*intent.Set, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	s, err := intent.Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}
