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

package logging

// Style selects the zap encoder NewLogger builds.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJson     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// Level is a zapcore.Level spelled out as a string, so Config can be loaded
// straight from env vars or flags without a zapcore import at the call site.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config controls the logger NewLogger produces. A zero Config yields a
// terminal-style logger at info level.
type Config struct {
	Style Style
	Level Level
}
