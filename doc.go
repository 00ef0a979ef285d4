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

// Package voxmatch turns voice-command templates into matchers and
// routes utterances to intents.
//
// The template compiler is in package 'core', matching is in package
// 'match', and vocabularies are in package 'vocab'.  Package 'intent'
// groups templates into intents with optional actions, and package
// 'sio' couples a parse service to the outside world.  Command-line
// tools are in 'cmd'.
package voxmatch
