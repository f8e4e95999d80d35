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
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// paramTypes are the JSON Schema types an action parameter may declare.
var paramTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

// optionTypes are the types a config option may declare.
var optionTypes = map[OptionType]bool{
	OptionString: true,
	OptionInt:    true,
	OptionFloat:  true,
	OptionBool:   true,
}

// resourceTypes are the recognized resource types.
var resourceTypes = map[ResourceType]bool{
	ResourceTypeFile:     true,
	ResourceTypeOCIImage: true,
}

// Validate checks the metadata declaration for structural problems.
func (m *Metadata) Validate() field.ErrorList {
	var allErrs field.ErrorList

	if m.Name == "" {
		allErrs = append(allErrs, field.Required(field.NewPath("name"), "charm name is required"))
	} else if errs := validation.IsDNS1123Label(m.Name); len(errs) > 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("name"), m.Name, strings.Join(errs, "; ")))
	}

	// An endpoint name must be unique across all three role sections.
	seen := make(map[string]bool)
	for _, section := range []struct {
		path      string
		endpoints map[string]Relation
	}{
		{"provides", m.Provides},
		{"requires", m.Requires},
		{"peers", m.Peers},
	} {
		sectionPath := field.NewPath(section.path)
		for name, rel := range section.endpoints {
			endpointPath := sectionPath.Key(name)
			if seen[name] {
				allErrs = append(allErrs, field.Duplicate(endpointPath, name))
			}
			seen[name] = true
			if rel.Interface == "" {
				allErrs = append(allErrs, field.Required(endpointPath.Child("interface"), "interface is required"))
			}
			if rel.Limit < 0 {
				allErrs = append(allErrs, field.Invalid(endpointPath.Child("limit"), rel.Limit, "limit must be non-negative"))
			}
		}
	}

	resourcesPath := field.NewPath("resources")
	for name, res := range m.Resources {
		if res.Type == "" {
			allErrs = append(allErrs, field.Required(resourcesPath.Key(name).Child("type"), "resource type is required"))
		} else if !resourceTypes[res.Type] {
			allErrs = append(allErrs, field.Invalid(resourcesPath.Key(name).Child("type"), res.Type, "must be 'file' or 'oci-image'"))
		}
	}

	containersPath := field.NewPath("containers")
	for name, container := range m.Containers {
		if container.Resource == "" {
			continue
		}
		resourcePath := containersPath.Key(name).Child("resource")
		res, ok := m.Resources[container.Resource]
		if !ok {
			allErrs = append(allErrs, field.Invalid(resourcePath, container.Resource, "references an undeclared resource"))
			continue
		}
		if res.Type != ResourceTypeOCIImage {
			allErrs = append(allErrs, field.Invalid(resourcePath, container.Resource, "container resources must be of type 'oci-image'"))
		}
	}

	return allErrs
}

// Validate checks the config declaration for structural problems.
func (c *Config) Validate() field.ErrorList {
	var allErrs field.ErrorList

	optionsPath := field.NewPath("options")
	for name, option := range c.Options {
		if option.Type == "" {
			allErrs = append(allErrs, field.Required(optionsPath.Key(name).Child("type"), "option type is required"))
		} else if !optionTypes[option.Type] {
			allErrs = append(allErrs, field.Invalid(optionsPath.Key(name).Child("type"), option.Type, "must be 'string', 'int', 'float' or 'boolean'"))
		}
	}

	return allErrs
}

// Validate checks the actions declaration for structural problems.
func (a Actions) Validate() field.ErrorList {
	var allErrs field.ErrorList

	for name, action := range a {
		actionPath := field.NewPath(name)
		if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
			allErrs = append(allErrs, field.Invalid(actionPath, name, strings.Join(errs, "; ")))
		}

		paramsPath := actionPath.Child("params")
		for paramName, param := range action.Params {
			if param.Type != "" && !paramTypes[param.Type] {
				allErrs = append(allErrs, field.Invalid(paramsPath.Key(paramName).Child("type"), param.Type, "must be a JSON Schema type"))
			}
		}

		for i, required := range action.Required {
			if _, ok := action.Params[required]; !ok {
				allErrs = append(allErrs, field.Invalid(actionPath.Child("required").Index(i), required, "references an undeclared parameter"))
			}
		}
	}

	return allErrs
}
