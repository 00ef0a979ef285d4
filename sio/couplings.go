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

// Package sio couples a parse Service to the outside world.
package sio

import (
	"context"
)

// Couplings provide channels for request input and response output.
//
// For example, an implementation could couple a Service to an MQTT
// broker or to a WebSocket.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the request and response channels.  The third
	// channel is closed when the input is exhausted.
	IO(context.Context) (chan *Request, chan *Response, chan bool, error)

	// Stop shuts down the Couplings.
	Stop(context.Context) error
}

// Request asks for an utterance to be parsed (and acted upon).
type Request struct {
	// Id is opaque.  It's copied to the Response.
	Id string `json:"id,omitempty"`

	Utterance string `json:"utterance"`

	// ParseOnly, if true, skips the intent's action.
	ParseOnly bool `json:"parseOnly,omitempty"`
}

// Response reports what became of a Request.
//
// A Response with no Intent and no Error means nothing matched.
type Response struct {
	Id string `json:"id,omitempty"`

	// Utterance is the normalized utterance.
	Utterance string `json:"utterance"`

	Intent string `json:"intent,omitempty"`

	// Phrase is the index of the intent's phrase that matched.
	Phrase int `json:"phrase,omitempty"`

	Slots      map[string]string `json:"slots,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`

	// Bindings is what the intent's action returned.
	Bindings map[string]interface{} `json:"bindings,omitempty"`

	// Emitted are messages the intent's action emitted.
	Emitted []interface{} `json:"emitted,omitempty"`

	Error string `json:"error,omitempty"`
}

// Matched reports whether the utterance was recognized.
func (r *Response) Matched() bool {
	return r.Intent != ""
}
