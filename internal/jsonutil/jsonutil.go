/*
Copyright 2025 The Fsphinx Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package jsonutil provides a configurable JSON encoding/decoding layer for
// cache-entry (de)serialization. It defaults to github.com/bytedance/sonic
// and can be swapped back to encoding/json (or any other implementation)
// via SetConfig.
//
// Usage:
//
//	data, err := jsonutil.Marshal(v)
//	err = jsonutil.Unmarshal(data, &v)
//
// To use a different JSON library:
//
//	jsonutil.SetConfig(jsonutil.Config{
//		Marshal:   gojson.Marshal,
//		Unmarshal: gojson.Unmarshal,
//	})
package jsonutil

import (
	stdjson "encoding/json"

	"github.com/bytedance/sonic"
)

// Config holds the JSON encoding/decoding functions this package delegates
// to.
type Config struct {
	Marshal   func(v any) ([]byte, error)
	Unmarshal func(data []byte, v any) error
}

// StdConfig uses the standard library, for tests or environments that need
// exact encoding/json semantics (e.g. map key ordering guarantees).
func StdConfig() Config {
	return Config{Marshal: stdjson.Marshal, Unmarshal: stdjson.Unmarshal}
}

// sonicConfig is the default: the teacher's own hot paths serialize request/
// response bodies with sonic rather than encoding/json, and cache entries
// here are on the same hot path (one (de)serialization per facet compute).
func sonicConfig() Config {
	return Config{Marshal: sonic.Marshal, Unmarshal: sonic.Unmarshal}
}

var config = sonicConfig()

// SetConfig sets the global JSON configuration.
func SetConfig(c Config) { config = c }

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) { return config.Marshal(v) }

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error { return config.Unmarshal(data, v) }
