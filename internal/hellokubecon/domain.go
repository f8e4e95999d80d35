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

// Package hellokubecon implements the hello-kubecon charm: it runs the
// gosherve web server in a sidecar container, requests ingress for it
// and shares demo state with its peers over the cluster relation.
package hellokubecon

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/charmkit/hello-kubecon/internal/relation"
)

// ClusterEndpoint is the peer relation name from metadata.yaml.
const ClusterEndpoint = "cluster"

// ConfigSchema declares the charm's config surface.
var ConfigSchema = relation.MustSchema("hello-kubecon-config", []relation.Field{
	{Name: "external_hostname", Kind: relation.KindString, Required: true},
	{Name: "redirect_map", Kind: relation.KindString, Required: true, Validate: urlValue},
}, relation.WithRule(hostnameAndMapDiffer))

// ClusterSchema declares the peer relation's application databag. The
// leader seeds it; every unit reads it back on cluster events.
var ClusterSchema = relation.MustSchema("hello-kubecon-cluster", []relation.Field{
	{Name: "my_key", Kind: relation.KindFloat, Required: true},
	{Name: "complex_property", Kind: relation.KindList, Required: true, Elem: &relation.Field{
		Kind: relation.KindObject,
		Fields: []relation.Field{
			{Name: "subkey", Kind: relation.KindString, Required: true},
		},
	}},
})

// PullSiteSchema declares the pull-site action's parameters.
var PullSiteSchema = relation.MustSchema("pull-site-params", []relation.Field{
	{Name: "url", Kind: relation.KindString, Required: true, Validate: urlValue},
})

// clusterSeed is the state the leader publishes when the peer relation
// forms.
func clusterSeed() map[string]any {
	return map[string]any{
		"my_key": 42.0,
		"complex_property": []any{
			map[string]any{"subkey": "enrico"},
		},
	}
}

// urlValue accepts http(s) URLs only.
func urlValue(path *field.Path, value any) *field.Error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "http") {
		return field.Invalid(path, s, "must be an http(s) URL")
	}
	return nil
}

// hostnameAndMapDiffer rejects configs pointing the hostname at the
// redirect map itself.
func hostnameAndMapDiffer(values map[string]any) field.ErrorList {
	hostname, hasHostname := values["external_hostname"]
	redirectMap, hasMap := values["redirect_map"]
	if hasHostname && hasMap && hostname == redirectMap {
		return field.ErrorList{
			field.Invalid(field.NewPath("redirect_map"), redirectMap, "external_hostname and redirect_map cannot hold the same value"),
		}
	}
	return nil
}
