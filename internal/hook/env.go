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
	"fmt"
	"os"
	"strings"
)

// Kind classifies the event a dispatch invocation delivers. Relation
// and workload kinds are derived from the hook name suffix; everything
// else matches the hook name verbatim.
type Kind string

const (
	KindInstall          Kind = "install"
	KindStart            Kind = "start"
	KindStop             Kind = "stop"
	KindRemove           Kind = "remove"
	KindConfigChanged    Kind = "config-changed"
	KindUpdateStatus     Kind = "update-status"
	KindUpgradeCharm     Kind = "upgrade-charm"
	KindLeaderElected    Kind = "leader-elected"
	KindLeaderSettings   Kind = "leader-settings-changed"
	KindRelationCreated  Kind = "relation-created"
	KindRelationJoined   Kind = "relation-joined"
	KindRelationChanged  Kind = "relation-changed"
	KindRelationDeparted Kind = "relation-departed"
	KindRelationBroken   Kind = "relation-broken"
	KindPebbleReady      Kind = "pebble-ready"
	KindAction           Kind = "action"

	// KindUnknown covers hooks this charm does not classify; the
	// dispatcher treats them as a no-op success, matching the host's
	// tolerance for unimplemented hooks.
	KindUnknown Kind = ""
)

// relationSuffixes maps hook name suffixes to relation event kinds, in
// match order.
var relationSuffixes = []struct {
	suffix string
	kind   Kind
}{
	{"-relation-created", KindRelationCreated},
	{"-relation-joined", KindRelationJoined},
	{"-relation-changed", KindRelationChanged},
	{"-relation-departed", KindRelationDeparted},
	{"-relation-broken", KindRelationBroken},
}

// Env is the event context the unit agent passes to a dispatch
// invocation through JUJU_* process environment variables. The charm
// never owns this state; it is parsed once per event and read-only
// from then on.
type Env struct {
	// Hook is the hook name, for example "config-changed" or
	// "cluster-relation-changed". Empty for action invocations.
	Hook string

	// DispatchPath is the path the agent invoked, for example
	// "hooks/install" or "actions/pull-site".
	DispatchPath string

	// UnitName is the local unit, for example "hello-kubecon/0".
	UnitName string

	// ModelName is the model the unit runs in.
	ModelName string

	// CharmDir is the root of the unpacked charm.
	CharmDir string

	// RelationName and RelationID identify the relation a relation
	// event fired for, for example "cluster" and "cluster:1".
	RelationName string
	RelationID   string

	// RemoteApp and RemoteUnit identify the counterpart the event
	// concerns. For peer relations the remote app is the local app.
	RemoteApp  string
	RemoteUnit string

	// DepartingUnit is set for relation-departed events.
	DepartingUnit string

	// Workload is the container name for pebble-ready events.
	Workload string

	// ActionName and ActionUUID identify an action invocation.
	ActionName string
	ActionUUID string
}

// ParseEnv builds an Env from lookup, normally os.Getenv. It fails
// when the mandatory identity variables are missing so a bad dispatch
// surfaces as an error at startup, not a panic mid-handler.
func ParseEnv(lookup func(key string) string) (*Env, error) {
	e := &Env{
		Hook:          lookup("JUJU_HOOK_NAME"),
		DispatchPath:  lookup("JUJU_DISPATCH_PATH"),
		UnitName:      lookup("JUJU_UNIT_NAME"),
		ModelName:     lookup("JUJU_MODEL_NAME"),
		CharmDir:      lookup("JUJU_CHARM_DIR"),
		RelationName:  lookup("JUJU_RELATION"),
		RelationID:    lookup("JUJU_RELATION_ID"),
		RemoteApp:     lookup("JUJU_REMOTE_APP"),
		RemoteUnit:    lookup("JUJU_REMOTE_UNIT"),
		DepartingUnit: lookup("JUJU_DEPARTING_UNIT"),
		Workload:      lookup("JUJU_WORKLOAD_NAME"),
		ActionName:    lookup("JUJU_ACTION_NAME"),
		ActionUUID:    lookup("JUJU_ACTION_UUID"),
	}

	if e.UnitName == "" {
		return nil, fmt.Errorf("JUJU_UNIT_NAME is not set; not running under a unit agent")
	}
	if e.Hook == "" && e.ActionName == "" {
		// Older agents only set the dispatch path.
		switch {
		case strings.HasPrefix(e.DispatchPath, "hooks/"):
			e.Hook = strings.TrimPrefix(e.DispatchPath, "hooks/")
		case strings.HasPrefix(e.DispatchPath, "actions/"):
			e.ActionName = strings.TrimPrefix(e.DispatchPath, "actions/")
		default:
			return nil, fmt.Errorf("neither JUJU_HOOK_NAME nor JUJU_ACTION_NAME is set (dispatch path %q)", e.DispatchPath)
		}
	}
	return e, nil
}

// ParseOSEnv is ParseEnv over the process environment.
func ParseOSEnv() (*Env, error) {
	return ParseEnv(os.Getenv)
}

// Kind classifies the event.
func (e *Env) Kind() Kind {
	if e.ActionName != "" {
		return KindAction
	}
	for _, rs := range relationSuffixes {
		if strings.HasSuffix(e.Hook, rs.suffix) {
			return rs.kind
		}
	}
	if strings.HasSuffix(e.Hook, "-pebble-ready") {
		return KindPebbleReady
	}
	switch Kind(e.Hook) {
	case KindInstall, KindStart, KindStop, KindRemove, KindConfigChanged,
		KindUpdateStatus, KindUpgradeCharm, KindLeaderElected, KindLeaderSettings:
		return Kind(e.Hook)
	}
	return KindUnknown
}

// AppName returns the local application name, derived from the unit
// name by stripping the unit index.
func (e *Env) AppName() string {
	if i := strings.IndexByte(e.UnitName, '/'); i >= 0 {
		return e.UnitName[:i]
	}
	return e.UnitName
}

// IsAction reports whether the event is an action invocation.
func (e *Env) IsAction() bool {
	return e.ActionName != ""
}

// WorkloadName returns the container a pebble-ready event fired for,
// falling back to the hook name prefix when the agent did not set
// JUJU_WORKLOAD_NAME.
func (e *Env) WorkloadName() string {
	if e.Workload != "" {
		return e.Workload
	}
	if strings.HasSuffix(e.Hook, "-pebble-ready") {
		return strings.TrimSuffix(e.Hook, "-pebble-ready")
	}
	return ""
}
