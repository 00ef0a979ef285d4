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

package core

// These errors are template author errors, not internal errors.
// Every one aborts the compilation; no partial Matcher is returned.

import (
	"errors"
)

// UnknownEntityType occurs when a typed slot names an entity type
// that isn't in the vocabulary.
type UnknownEntityType struct {
	EntityType string
	Template   string
}

func (e *UnknownEntityType) Error() string {
	return `no entity type by the name "` + e.EntityType + `" in template "` + e.Template + `"`
}

// MalformedFragment occurs when no production recognizes what's left
// of the template.
type MalformedFragment struct {
	// Fragment is the unconsumed remainder of the template.
	Fragment string

	Template string
}

func (e *MalformedFragment) Error() string {
	return `malformed part "` + e.Fragment + `" of template "` + e.Template + `"`
}

// DuplicateSlot occurs when a template declares the same slot name
// twice.
type DuplicateSlot struct {
	Slot     string
	Template string
}

func (e *DuplicateSlot) Error() string {
	return `slot "` + e.Slot + `" declared more than once in template "` + e.Template + `"`
}

// InvalidPattern occurs when the assembled pattern isn't a regular
// expression.  Authored backslashes are copied into the pattern
// verbatim, so a template ending in "\\" ends up here.
type InvalidPattern struct {
	Pattern  string
	Template string
	Err      error
}

func (e *InvalidPattern) Error() string {
	return `template "` + e.Template + `" compiled to bad pattern "` + e.Pattern + `": ` + e.Err.Error()
}

func (e *InvalidPattern) Unwrap() error {
	return e.Err
}

// IsCompileError reports whether the error (or anything it wraps)
// is one of this package's compilation errors.
func IsCompileError(err error) bool {
	var (
		u *UnknownEntityType
		m *MalformedFragment
		d *DuplicateSlot
		p *InvalidPattern
	)
	return errors.As(err, &u) || errors.As(err, &m) || errors.As(err, &d) || errors.As(err, &p)
}
