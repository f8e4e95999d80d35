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

package metadata

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// Dir holds a charm directory's parsed declaration files.
type Dir struct {
	// Meta is the charm's metadata.yaml.
	Meta *Metadata
	// Config is the charm's config.yaml, nil when the charm ships none.
	Config *Config
	// Actions is the charm's actions.yaml, nil when the charm ships none.
	Actions Actions
}

// Load reads and validates the declaration files under charmDir.
// metadata.yaml must exist; config.yaml and actions.yaml are optional.
func Load(charmDir string) (*Dir, error) {
	dir := &Dir{}

	raw, err := os.ReadFile(filepath.Join(charmDir, "metadata.yaml"))
	if err != nil {
		return nil, fmt.Errorf("reading charm metadata: %w", err)
	}
	if dir.Meta, err = ParseMetadata(raw); err != nil {
		return nil, err
	}

	raw, err = os.ReadFile(filepath.Join(charmDir, "config.yaml"))
	switch {
	case err == nil:
		if dir.Config, err = ParseConfig(raw); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading charm config declaration: %w", err)
	}

	raw, err = os.ReadFile(filepath.Join(charmDir, "actions.yaml"))
	switch {
	case err == nil:
		if dir.Actions, err = ParseActions(raw); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading charm actions declaration: %w", err)
	}

	return dir, nil
}

// ParseMetadata decodes and validates a metadata.yaml document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata.yaml: %w", err)
	}
	if errs := meta.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid metadata.yaml: %w", errs.ToAggregate())
	}
	return &meta, nil
}

// ParseConfig decodes and validates a config.yaml document.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config.yaml: %w", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config.yaml: %w", errs.ToAggregate())
	}
	return &config, nil
}

// ParseActions decodes and validates an actions.yaml document.
func ParseActions(data []byte) (Actions, error) {
	var actions Actions
	if err := yaml.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("parsing actions.yaml: %w", err)
	}
	if errs := actions.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid actions.yaml: %w", errs.ToAggregate())
	}
	return actions, nil
}
