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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one Juju hook tool and returns its stdout. The agent
// places the tools (relation-get, relation-set, is-leader, ...) on
// PATH for the duration of the event; everything the charm knows about
// the outside world flows through this interface, which is what tests
// script against.
type Runner interface {
	Run(ctx context.Context, tool string, args ...string) ([]byte, error)
}

// ExecRunner runs hook tools as subprocesses.
type ExecRunner struct{}

// Run executes tool with args and returns its stdout. On failure the
// tool's stderr is folded into the returned error, since that is where
// the agent reports refusals such as writing relation data without
// leadership.
func (ExecRunner) Run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", tool, strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", tool, strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}
