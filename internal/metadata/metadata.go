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

// Package metadata models the declaration files shipped in a charm
// directory: metadata.yaml, config.yaml and actions.yaml.
package metadata

// Metadata is the content of a charm's metadata.yaml.
type Metadata struct {
	// Name is the charm's name.
	Name string `json:"name"`
	// Summary is a short one-line description.
	Summary string `json:"summary,omitempty"`
	// Description is a longer description of the charm.
	Description string `json:"description,omitempty"`
	// Provides declares the endpoints this charm serves.
	Provides map[string]Relation `json:"provides,omitempty"`
	// Requires declares the endpoints this charm consumes.
	Requires map[string]Relation `json:"requires,omitempty"`
	// Peers declares the endpoints shared between this charm's units.
	Peers map[string]Relation `json:"peers,omitempty"`
	// Containers declares the workload containers the charm manages.
	Containers map[string]Container `json:"containers,omitempty"`
	// Resources declares the resources attached at deploy time.
	Resources map[string]Resource `json:"resources,omitempty"`
}

// Relation declares one relation endpoint.
type Relation struct {
	// Interface names the protocol both sides of the relation speak.
	Interface string `json:"interface"`
	// Limit caps how many relations may use the endpoint, 0 for no cap.
	Limit int `json:"limit,omitempty"`
	// Optional marks the endpoint as not required for the charm to work.
	Optional bool `json:"optional,omitempty"`
}

// Container declares one workload container.
type Container struct {
	// Resource names the oci-image resource holding the container image.
	Resource string `json:"resource,omitempty"`
}

// ResourceType enumerates the recognized resource types.
type ResourceType string

const (
	ResourceTypeFile     ResourceType = "file"
	ResourceTypeOCIImage ResourceType = "oci-image"
)

// Resource declares one resource attached at deploy time.
type Resource struct {
	// Type identifies the kind of resource.
	Type ResourceType `json:"type"`
	// Description holds optional user-facing info for the resource.
	Description string `json:"description,omitempty"`
	// UpstreamSource is the default image reference for oci-image
	// resources.
	UpstreamSource string `json:"upstream-source,omitempty"`
}

// Config is the content of a charm's config.yaml.
type Config struct {
	// Options maps option names to their declarations.
	Options map[string]Option `json:"options"`
}

// OptionType enumerates the types a config option may declare.
type OptionType string

const (
	OptionString OptionType = "string"
	OptionInt    OptionType = "int"
	OptionFloat  OptionType = "float"
	OptionBool   OptionType = "boolean"
)

// Option declares one charm config option.
type Option struct {
	// Type is the option's declared type.
	Type OptionType `json:"type"`
	// Description holds optional user-facing info for the option.
	Description string `json:"description,omitempty"`
	// Default is the value the option takes when the operator sets none.
	Default any `json:"default,omitempty"`
}

// Actions is the content of a charm's actions.yaml, keyed by action name.
type Actions map[string]Action

// Action declares one charm action.
type Action struct {
	// Description holds user-facing info for the action.
	Description string `json:"description,omitempty"`
	// Params declares the action's parameters.
	Params map[string]Param `json:"params,omitempty"`
	// Required lists the parameters callers must supply.
	Required []string `json:"required,omitempty"`
}

// Param declares one action parameter in JSON Schema vocabulary.
type Param struct {
	// Type is the parameter's JSON Schema type.
	Type string `json:"type,omitempty"`
	// Description holds optional user-facing info for the parameter.
	Description string `json:"description,omitempty"`
}
