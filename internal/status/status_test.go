package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmkit/hello-kubecon/internal/hook"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		facts       Facts
		wantKind    hook.StatusKind
		wantMessage string
	}{
		{
			name:        "config failure blocks regardless of the rest",
			facts:       Facts{ConfigErr: errors.New("no redirect-map set"), PebbleReady: true, Service: "gosherve", ServiceActive: true},
			wantKind:    hook.StatusBlocked,
			wantMessage: "no redirect-map set",
		},
		{
			name:        "pebble not ready waits",
			facts:       Facts{PebbleReady: false},
			wantKind:    hook.StatusWaiting,
			wantMessage: MessagePebblePending,
		},
		{
			name:        "service stopped is maintenance",
			facts:       Facts{PebbleReady: true, Service: "gosherve", ServiceActive: false},
			wantKind:    hook.StatusMaintenance,
			wantMessage: `Service "gosherve" is not running`,
		},
		{
			name:        "no service expected yet is active",
			facts:       Facts{PebbleReady: true},
			wantKind:    hook.StatusActive,
			wantMessage: MessageReady,
		},
		{
			name:        "all gates pass",
			facts:       Facts{PebbleReady: true, Service: "gosherve", ServiceActive: true},
			wantKind:    hook.StatusActive,
			wantMessage: MessageReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, message := Compute(tt.facts)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestApply(t *testing.T) {
	runner := hook.NewMockRunner()
	tools := hook.NewContext(&hook.Env{UnitName: "hello-kubecon/0", Hook: "update-status"}, runner)

	err := Apply(context.Background(), tools, Facts{PebbleReady: false})
	require.NoError(t, err)
	assert.True(t, runner.CalledWith("status-set", "waiting", MessagePebblePending))
}
