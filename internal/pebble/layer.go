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

package pebble

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Override policies for a service redefined by a later layer.
const (
	OverrideReplace = "replace"
	OverrideMerge   = "merge"
)

// Startup policies for a service.
const (
	StartupEnabled  = "enabled"
	StartupDisabled = "disabled"
)

// Layer is a Pebble configuration layer.
type Layer struct {
	// Summary is a short one-line description of the layer.
	Summary string `json:"summary,omitempty"`
	// Description is a longer description of the layer.
	Description string `json:"description,omitempty"`
	// Services maps service names to their definitions.
	Services map[string]Service `json:"services,omitempty"`
}

// Service defines how Pebble runs and supervises one service.
type Service struct {
	// Override declares how this definition combines with an earlier
	// layer's service of the same name (OverrideReplace or OverrideMerge).
	Override string `json:"override,omitempty"`
	// Summary is a short one-line description of the service.
	Summary string `json:"summary,omitempty"`
	// Command is the command line used to start the service.
	Command string `json:"command,omitempty"`
	// Startup is StartupEnabled when autostart should bring the
	// service up.
	Startup string `json:"startup,omitempty"`
	// Environment is the service's environment.
	Environment map[string]string `json:"environment,omitempty"`
}

// ParseLayer decodes a layer from its YAML wire form.
func ParseLayer(data []byte) (*Layer, error) {
	var layer Layer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("parsing layer: %w", err)
	}
	return &layer, nil
}

// YAML renders the layer in its YAML wire form.
func (l *Layer) YAML() ([]byte, error) {
	return yaml.Marshal(l)
}

// Combine folds other into l the way the daemon combines layers sharing
// a label: a service with OverrideReplace supersedes the existing
// definition, OverrideMerge keeps existing fields the override leaves
// empty and merges environments key-wise.
func (l *Layer) Combine(other *Layer) error {
	if other.Summary != "" {
		l.Summary = other.Summary
	}
	if other.Description != "" {
		l.Description = other.Description
	}

	if len(other.Services) > 0 && l.Services == nil {
		l.Services = make(map[string]Service)
	}
	for name, svc := range other.Services {
		existing, exists := l.Services[name]
		if !exists || svc.Override == OverrideReplace {
			l.Services[name] = svc
			continue
		}
		if svc.Override != OverrideMerge {
			return fmt.Errorf("service %q: unknown override %q", name, svc.Override)
		}
		if svc.Summary != "" {
			existing.Summary = svc.Summary
		}
		if svc.Command != "" {
			existing.Command = svc.Command
		}
		if svc.Startup != "" {
			existing.Startup = svc.Startup
		}
		existing.Environment = mergeEnv(existing.Environment, svc.Environment)
		l.Services[name] = existing
	}
	return nil
}

// mergeEnv merges environment maps with right-hand precedence.
func mergeEnv(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for key, value := range m {
			result[key] = value
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
