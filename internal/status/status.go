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

// Package status derives the unit's workload status from what a hook
// observed. Each gate shadows the ones after it, so the reported status
// always names the first thing an operator has to fix.
package status

import (
	"context"
	"fmt"

	"github.com/charmkit/hello-kubecon/internal/hook"
)

// Standard unit status messages.
const (
	MessagePebblePending = "Waiting for Pebble in workload container"
	MessageReady         = ""
)

// Facts captures what a handler observed about the unit when it ran.
type Facts struct {
	// ConfigErr is the charm configuration validation failure, if any.
	ConfigErr error
	// PebbleReady reports whether the workload container's Pebble responded.
	PebbleReady bool
	// Service is the workload service name, empty when no service is
	// expected to exist yet.
	Service string
	// ServiceActive reports whether the workload service is running.
	ServiceActive bool
}

// Compute determines the unit status for the observed facts.
// Active = ConfigValid ∧ PebbleReady ∧ ServiceActive
func Compute(f Facts) (hook.StatusKind, string) {
	if f.ConfigErr != nil {
		return hook.StatusBlocked, f.ConfigErr.Error()
	}
	if !f.PebbleReady {
		return hook.StatusWaiting, MessagePebblePending
	}
	if f.Service != "" && !f.ServiceActive {
		return hook.StatusMaintenance, fmt.Sprintf("Service %q is not running", f.Service)
	}
	return hook.StatusActive, MessageReady
}

// Apply computes the status for the facts and reports it to the agent.
func Apply(ctx context.Context, tools *hook.Context, f Facts) error {
	kind, message := Compute(f)
	return tools.StatusSet(ctx, kind, message)
}
