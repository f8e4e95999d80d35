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

package ingress

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmkit/hello-kubecon/internal/hook"
)

func requestValues() map[string]any {
	return map[string]any{
		"service_hostname": "hellokubecon.juju",
		"service_name":     "hello-kubecon",
		"service_port":     80,
	}
}

func ingressEvent(runner hook.Runner) *hook.Event {
	return hook.NewEvent(&hook.Env{
		UnitName:     "hello-kubecon/0",
		Hook:         "ingress-relation-changed",
		RelationName: "ingress",
		RelationID:   "ingress:0",
		RemoteApp:    "nginx-ingress-integrator",
	}, runner)
}

func TestNewRequirerValidatesEagerly(t *testing.T) {
	_, err := NewRequirer(logr.Discard(), map[string]any{
		"service_hostname": "hellokubecon.juju",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_name")
	assert.Contains(t, err.Error(), "service_port")
}

func TestHandleRelationFlushesOnLeader(t *testing.T) {
	runner := hook.NewMockRunner().
		Respond("is-leader", "true").
		Respond("relation-get", "{}")

	req, err := NewRequirer(logr.Discard(), requestValues())
	require.NoError(t, err)

	require.NoError(t, req.HandleRelation(context.Background(), ingressEvent(runner)))

	assert.True(t, runner.CalledWith("relation-set", "-r", "ingress:0", "--app", "service-hostname=hellokubecon.juju"))
	assert.True(t, runner.CalledWith("relation-set", "-r", "ingress:0", "--app", "service-name=hello-kubecon"))
	assert.True(t, runner.CalledWith("relation-set", "-r", "ingress:0", "--app", "service-port=80"))
	assert.True(t, req.Record().Bound())
}

func TestHandleRelationSkipsFollowers(t *testing.T) {
	runner := hook.NewMockRunner().Respond("is-leader", "false")

	req, err := NewRequirer(logr.Discard(), requestValues())
	require.NoError(t, err)

	require.NoError(t, req.HandleRelation(context.Background(), ingressEvent(runner)))
	assert.Empty(t, runner.CallsTo("relation-set"))
	assert.False(t, req.Record().Bound())
}

func TestUpdateConfigWritesThroughWhileBound(t *testing.T) {
	runner := hook.NewMockRunner().
		Respond("is-leader", "true").
		Respond("relation-get", "{}")

	req, err := NewRequirer(logr.Discard(), requestValues())
	require.NoError(t, err)

	ev := ingressEvent(runner)
	require.NoError(t, req.HandleRelation(context.Background(), ev))
	flushed := len(runner.CallsTo("relation-set"))

	err = req.UpdateConfig(context.Background(), ev, map[string]any{
		"service_hostname": "demo.juju",
	})
	require.NoError(t, err)

	calls := runner.CallsTo("relation-set")
	require.Len(t, calls, flushed+1, "a bound record writes only the changed field")
	assert.Equal(t, []string{"-r", "ingress:0", "--app", "service-hostname=demo.juju"}, calls[flushed])
}

func TestUpdateConfigFlushesUnboundRecord(t *testing.T) {
	runner := hook.NewMockRunner().
		Respond("is-leader", "true").
		Respond("relation-ids", `["ingress:4"]`).
		Respond("relation-get", "{}")

	req, err := NewRequirer(logr.Discard(), requestValues())
	require.NoError(t, err)

	// config-changed carries no relation of its own.
	ev := hook.NewEvent(&hook.Env{UnitName: "hello-kubecon/0", Hook: "config-changed"}, runner)
	err = req.UpdateConfig(context.Background(), ev, map[string]any{
		"service_hostname": "demo.juju",
	})
	require.NoError(t, err)

	assert.True(t, runner.CalledWith("relation-ids", "--format=json", "ingress"))
	assert.True(t, runner.CalledWith("relation-set", "-r", "ingress:4", "--app", "service-hostname=demo.juju"))
	assert.True(t, runner.CalledWith("relation-set", "-r", "ingress:4", "--app", "service-port=80"))
	assert.True(t, req.Record().Bound())
}

func TestUpdateConfigWithoutRelationKeepsValues(t *testing.T) {
	runner := hook.NewMockRunner().
		Respond("is-leader", "true").
		Respond("relation-ids", `[]`)

	req, err := NewRequirer(logr.Discard(), requestValues())
	require.NoError(t, err)

	ev := hook.NewEvent(&hook.Env{UnitName: "hello-kubecon/0", Hook: "config-changed"}, runner)
	err = req.UpdateConfig(context.Background(), ev, map[string]any{
		"service_hostname": "demo.juju",
	})
	require.NoError(t, err)

	assert.Empty(t, runner.CallsTo("relation-set"))
	assert.Equal(t, "demo.juju", req.Record().String("service_hostname"))
}

func TestUpdateConfigRejectsBadValues(t *testing.T) {
	runner := hook.NewMockRunner().Respond("is-leader", "true")

	req, err := NewRequirer(logr.Discard(), requestValues())
	require.NoError(t, err)

	ev := hook.NewEvent(&hook.Env{UnitName: "hello-kubecon/0", Hook: "config-changed"}, runner)
	err = req.UpdateConfig(context.Background(), ev, map[string]any{
		"service_port": "eighty",
	})
	require.Error(t, err)
	assert.Equal(t, "hellokubecon.juju", req.Record().String("service_hostname"), "failed update leaves the record untouched")
}

func TestURL(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   string
	}{
		{
			name:   "plain http on the standard port",
			values: requestValues(),
			want:   "http://hellokubecon.juju/",
		},
		{
			name: "http on a non-standard port",
			values: map[string]any{
				"service_hostname": "hellokubecon.juju",
				"service_name":     "hello-kubecon",
				"service_port":     8080,
			},
			want: "http://hellokubecon.juju:8080/",
		},
		{
			name: "tls secret switches the scheme",
			values: map[string]any{
				"service_hostname": "hellokubecon.juju",
				"service_name":     "hello-kubecon",
				"service_port":     443,
				"tls_secret_name":  "hellokubecon-tls",
			},
			want: "https://hellokubecon.juju/",
		},
		{
			name: "https keeps a non-standard port",
			values: map[string]any{
				"service_hostname": "hellokubecon.juju",
				"service_name":     "hello-kubecon",
				"service_port":     8443,
				"tls_secret_name":  "hellokubecon-tls",
			},
			want: "https://hellokubecon.juju:8443/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, verr := Schema.New(tt.values)
			require.Nil(t, verr)
			assert.Equal(t, tt.want, URL(record))
		})
	}
}
