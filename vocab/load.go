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

package vocab

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/jsccast/yaml"
)

// LoadError reports a vocabulary document with the wrong shape.
type LoadError struct {
	EntityType string
	Msg        string
}

func (e *LoadError) Error() string {
	if e.EntityType == "" {
		return "vocabulary: " + e.Msg
	}
	return `vocabulary: entity type "` + e.EntityType + `": ` + e.Msg
}

// Parse reads a vocabulary from YAML (or JSON).
//
// The document is a map from entity type to a list of phrases:
//
//	serviceName:
//	  - gmail
//	  - google drive
//	smallNumber: ["1", "2", "one", "two"]
//
// Phrases are taken as written: "yes", "on", "1.50" and "010" stay
// exactly that.
func Parse(bs []byte) (Map, error) {
	var doc map[string][]string
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		if _, is := err.(*yaml.TypeError); is {
			return nil, shapeError(bs, err)
		}
		return nil, err
	}

	acc := make(Map, len(doc))
	for t, phrases := range doc {
		if t == "" {
			return nil, &LoadError{Msg: "empty entity type"}
		}
		if phrases == nil {
			phrases = []string{}
		}
		acc[t] = phrases
	}

	return acc, nil
}

// shapeError finds the entity type whose value isn't a list of
// phrases.
func shapeError(bs []byte, err error) error {
	var doc map[string]interface{}
	if yaml.Unmarshal(bs, &doc) != nil {
		return &LoadError{Msg: err.Error()}
	}

	types := make([]string, 0, len(doc))
	for t := range doc {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		switch vv := doc[t].(type) {
		case nil:
		case []interface{}:
			for i, p := range vv {
				switch p.(type) {
				case map[interface{}]interface{}, map[string]interface{}, []interface{}:
					return &LoadError{
						EntityType: t,
						Msg:        fmt.Sprintf("phrase %d is a %T", i, p),
					}
				}
			}
		default:
			return &LoadError{
				EntityType: t,
				Msg:        fmt.Sprintf("expected a list of phrases, not a %T", vv),
			}
		}
	}

	return &LoadError{Msg: err.Error()}
}

// ReadFile reads a vocabulary file.  See Parse.
func ReadFile(filename string) (Map, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(bs)
}
