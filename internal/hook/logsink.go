/*
Copyright 2025.

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

package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// NewJujuLogger returns a logr.Logger that forwards to the juju-log
// hook tool, so charm output lands in the model's debug log when the
// binary runs under the agent. V(0) maps to INFO, higher verbosities
// to DEBUG.
func NewJujuLogger(runner Runner) logr.Logger {
	return logr.New(&jujuLogSink{runner: runner})
}

type jujuLogSink struct {
	runner Runner
	name   string
	kv     []any
}

func (s *jujuLogSink) Init(logr.RuntimeInfo) {}

// Enabled defers filtering to the agent, which applies the model's
// logging-config to everything juju-log receives.
func (s *jujuLogSink) Enabled(int) bool { return true }

func (s *jujuLogSink) Info(level int, msg string, kv ...any) {
	logLevel := "INFO"
	if level > 0 {
		logLevel = "DEBUG"
	}
	s.emit(logLevel, msg, kv)
}

func (s *jujuLogSink) Error(err error, msg string, kv ...any) {
	if err != nil {
		kv = append(kv, "error", err)
	}
	s.emit("ERROR", msg, kv)
}

func (s *jujuLogSink) WithValues(kv ...any) logr.LogSink {
	clone := *s
	clone.kv = append(append([]any{}, s.kv...), kv...)
	return &clone
}

func (s *jujuLogSink) WithName(name string) logr.LogSink {
	clone := *s
	if clone.name != "" {
		clone.name += "." + name
	} else {
		clone.name = name
	}
	return &clone
}

func (s *jujuLogSink) emit(level, msg string, kv []any) {
	var b strings.Builder
	if s.name != "" {
		b.WriteString(s.name)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	appendKV(&b, s.kv)
	appendKV(&b, kv)

	// Logging must never fail the event; a lost line is acceptable.
	_, _ = s.runner.Run(context.Background(), "juju-log", "--log-level", level, b.String())
}

func appendKV(b *strings.Builder, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(b, " %v=%v", kv[i], kv[i+1])
	}
}
