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

// Package core compiles voice-command templates into regular
// expression patterns.
//
// A template is a sequence of fragments:
//
//	[name=value]   binds a static parameter and matches nothing
//	[name]         an untyped slot, which matches one or more words
//	[name:type]    a typed slot, which matches one phrase of the
//	               entity type from a vocabulary
//	(a|b|)         alternatives, which capture nothing
//	words          literal words
//
// For example, with a vocabulary where "serviceName" is "gmail" or
// "google drive", the template
//
//	[mode=tab] open [app:serviceName]
//
// compiles to the pattern
//
//	 open( gmail| google drive)
//
// with one slot ("app" of type "serviceName") and one parameter
// ("mode" = "tab").  Each fragment's pattern starts with a single
// space, so the subject of a match is the utterance with a space in
// front.  Package match does that.
//
// Braces mark optional text: {X} becomes (?:X)? after everything
// else is compiled.  Since words are separated by the space in front
// of each word, put that space inside the braces ("tabs{ please}").
//
// A Compiler is safe for concurrent use, and compilation never
// modifies the vocabulary.
package core
