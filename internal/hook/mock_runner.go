package hook

import (
	"context"
	"strings"
)

// RunnerCall records one hook tool invocation.
type RunnerCall struct {
	Tool string
	Args []string
}

// MockRunner implements Runner for tests: tool output is scripted per
// tool name and every invocation is recorded. Unscripted tools succeed
// with empty output, which matches the silent tools (status-set,
// juju-log, relation-set) and keeps scripts short.
type MockRunner struct {
	Calls []RunnerCall

	responses map[string]func(args []string) (string, error)
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{responses: make(map[string]func([]string) (string, error))}
}

// Respond scripts a fixed stdout for tool.
func (m *MockRunner) Respond(tool, output string) *MockRunner {
	m.responses[tool] = func([]string) (string, error) {
		return output, nil
	}
	return m
}

// RespondWith scripts tool with a function of its arguments, for tools
// whose output depends on them (relation-get for different members).
func (m *MockRunner) RespondWith(tool string, fn func(args []string) (string, error)) *MockRunner {
	m.responses[tool] = fn
	return m
}

// FailWith scripts tool to fail.
func (m *MockRunner) FailWith(tool string, err error) *MockRunner {
	m.responses[tool] = func([]string) (string, error) {
		return "", err
	}
	return m
}

// Run replays the scripted response and records the call.
func (m *MockRunner) Run(_ context.Context, tool string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, RunnerCall{Tool: tool, Args: args})
	if fn, ok := m.responses[tool]; ok {
		out, err := fn(args)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return nil, nil
}

// CallsTo returns the argument lists of every recorded call to tool.
func (m *MockRunner) CallsTo(tool string) [][]string {
	var calls [][]string
	for _, c := range m.Calls {
		if c.Tool == tool {
			calls = append(calls, c.Args)
		}
	}
	return calls
}

// CalledWith reports whether tool was invoked with exactly args.
func (m *MockRunner) CalledWith(tool string, args ...string) bool {
	for _, c := range m.CallsTo(tool) {
		if strings.Join(c, "\x00") == strings.Join(args, "\x00") {
			return true
		}
	}
	return false
}
