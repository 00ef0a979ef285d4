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

// Package util has process-wide switches shared by the commands.
package util

import (
	"log"
	"strings"
)

// Logging is a clumsy switch that affects what Logf does.
//
// If Logging is true, then Logf calls log.Printf.
var Logging = false

// Logf calls log.Printf if Logging is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	log.Printf(format, args...)
}

// SetLogging turns Logf on or off and returns the previous setting.
func SetLogging(on bool) bool {
	was := Logging
	Logging = on
	return was
}

// Quote shortens s for a log line.
func Quote(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return `"` + s + `"`
	}
	return `"` + strings.TrimSpace(s[:max-3]) + `..."`
}
