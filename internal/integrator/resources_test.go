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

package integrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	networkingv1 "k8s.io/api/networking/v1"

	"github.com/charmkit/hello-kubecon/internal/ingress"
	"github.com/charmkit/hello-kubecon/internal/relation"
)

func requestRecord(t *testing.T, overrides map[string]any) *relation.Record {
	t.Helper()
	values := map[string]any{
		"service_hostname": "hellokubecon.juju",
		"service_name":     "hello-kubecon",
		"service_port":     8080,
	}
	for name, value := range overrides {
		values[name] = value
	}
	record, verr := ingress.Schema.New(values)
	require.Nil(t, verr)
	return record
}

func TestBuildIngressDefaults(t *testing.T) {
	ing := buildIngress(requestRecord(t, nil), "demo", "ingress:0")

	assert.Equal(t, "hello-kubecon-ingress", ing.Name)
	assert.Equal(t, "demo", ing.Namespace)
	assert.Equal(t, map[string]string{
		managedByKey: managedByValue,
		relationKey:  "ingress-0",
	}, ing.Labels)

	require.Len(t, ing.Spec.Rules, 1)
	rule := ing.Spec.Rules[0]
	assert.Equal(t, "hellokubecon.juju", rule.Host)
	require.Len(t, rule.HTTP.Paths, 1)
	path := rule.HTTP.Paths[0]
	assert.Equal(t, "/", path.Path)
	require.NotNil(t, path.PathType)
	assert.Equal(t, networkingv1.PathTypePrefix, *path.PathType)
	assert.Equal(t, "hello-kubecon", path.Backend.Service.Name)
	assert.Equal(t, int32(8080), path.Backend.Service.Port.Number)

	assert.Equal(t, map[string]string{
		nginxPrefix + "rewrite-target": "/",
		nginxPrefix + "ssl-redirect":   "false",
	}, ing.Annotations)
	assert.Empty(t, ing.Spec.TLS)
}

func TestBuildIngressFullyTuned(t *testing.T) {
	record := requestRecord(t, map[string]any{
		"additional_hostnames":   "alt.hellokubecon.juju, static.hellokubecon.juju",
		"path_routes":            "/admin,/api",
		"limit_rps":              "25",
		"limit_whitelist":        "10.0.0.0/8",
		"max_body_size":          "20",
		"retry_errors":           "error, timeout, http_502, teapot",
		"rewrite_enabled":        "false",
		"session_cookie_max_age": "3600",
		"tls_secret_name":        "hellokubecon-tls",
	})
	ing := buildIngress(record, "demo", "ingress:3")

	hosts := []string{"hellokubecon.juju", "alt.hellokubecon.juju", "static.hellokubecon.juju"}
	require.Len(t, ing.Spec.Rules, 3)
	for i, rule := range ing.Spec.Rules {
		assert.Equal(t, hosts[i], rule.Host)
		require.Len(t, rule.HTTP.Paths, 2)
		assert.Equal(t, "/admin", rule.HTTP.Paths[0].Path)
		assert.Equal(t, "/api", rule.HTTP.Paths[1].Path)
	}
	require.Len(t, ing.Spec.TLS, 1)
	assert.Equal(t, hosts, ing.Spec.TLS[0].Hosts)
	assert.Equal(t, "hellokubecon-tls", ing.Spec.TLS[0].SecretName)

	ann := ing.Annotations
	assert.NotContains(t, ann, nginxPrefix+"rewrite-target")
	assert.NotContains(t, ann, nginxPrefix+"ssl-redirect")
	assert.Equal(t, "25", ann[nginxPrefix+"limit-rps"])
	assert.Equal(t, "10.0.0.0/8", ann[nginxPrefix+"limit-whitelist"])
	assert.Equal(t, "20m", ann[nginxPrefix+"proxy-body-size"])
	assert.Equal(t, "error timeout http_502", ann[nginxPrefix+"proxy-next-upstream"])
	assert.Equal(t, "cookie", ann[nginxPrefix+"affinity"])
	assert.Equal(t, "balanced", ann[nginxPrefix+"affinity-mode"])
	assert.Equal(t, "3600", ann[nginxPrefix+"session-cookie-max-age"])
	assert.Equal(t, "HELLO-KUBECON_AFFINITY", ann[nginxPrefix+"session-cookie-name"])
	assert.Equal(t, "Lax", ann[nginxPrefix+"session-cookie-samesite"])
	assert.Equal(t, "true", ann[nginxPrefix+"session-cookie-change-on-failure"])
}

func TestBuildIngressCustomRewriteTarget(t *testing.T) {
	ing := buildIngress(requestRecord(t, map[string]any{"rewrite_target": "/app"}), "demo", "ingress:0")

	assert.Equal(t, "/app", ing.Annotations[nginxPrefix+"rewrite-target"])
}

func TestRetryCodes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "known codes pass through", raw: "error,timeout", want: "error timeout"},
		{name: "unknown codes dropped", raw: "error,teapot,http_502", want: "error http_502"},
		{name: "whitespace tolerated", raw: " error , non_idempotent ", want: "error non_idempotent"},
		{name: "empty", raw: "", want: ""},
		{name: "nothing valid", raw: "teapot", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryCodes(tt.raw))
		})
	}
}
