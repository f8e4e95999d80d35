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

// Package hook is the boundary to the Juju unit agent: the JUJU_*
// event environment, the hook tools the agent puts on PATH, and the
// relation databags exposed through them. The agent owns the event
// loop, persistence and leader election; this package only calls in.
package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/charmkit/hello-kubecon/internal/relation"
)

// StatusKind is the workload status vocabulary status-set accepts.
type StatusKind string

const (
	StatusActive      StatusKind = "active"
	StatusBlocked     StatusKind = "blocked"
	StatusMaintenance StatusKind = "maintenance"
	StatusWaiting     StatusKind = "waiting"
)

// ErrNoRelation is returned when a relation name has no established
// relation to operate on.
var ErrNoRelation = errors.New("relation is not established")

// Context exposes the hook tools for one event. Results that cannot
// change within an event (leadership, config, databag snapshots) are
// cached for its duration; the agent dispatches events one at a time,
// so no locking is needed.
type Context struct {
	runner Runner
	env    *Env

	leader      *bool
	config      relation.Bag
	actions     relation.Bag
	relationIDs map[string][]string
	bags        map[string]*relationBag
}

// NewContext builds the tool facade for one event.
func NewContext(env *Env, runner Runner) *Context {
	return &Context{
		runner:      runner,
		env:         env,
		relationIDs: make(map[string][]string),
		bags:        make(map[string]*relationBag),
	}
}

// Env returns the event environment the context was built for.
func (c *Context) Env() *Env {
	return c.env
}

// IsLeader reports whether this unit currently holds application
// leadership. The agent guarantees the answer holds for the rest of
// the event, so it is fetched once.
func (c *Context) IsLeader(ctx context.Context) (bool, error) {
	if c.leader != nil {
		return *c.leader, nil
	}
	out, err := c.runner.Run(ctx, "is-leader", "--format=json")
	if err != nil {
		return false, fmt.Errorf("checking leadership: %w", err)
	}
	var leader bool
	if err := json.Unmarshal(out, &leader); err != nil {
		return false, fmt.Errorf("parsing is-leader output: %w", err)
	}
	c.leader = &leader
	return leader, nil
}

// ConfigBag returns the charm config as a read-only string bag, keyed
// by the hyphenated option names from config.yaml.
func (c *Context) ConfigBag(ctx context.Context) (relation.Bag, error) {
	if c.config != nil {
		return c.config, nil
	}
	out, err := c.runner.Run(ctx, "config-get", "--format=json")
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	bag, err := decodeStringBag(out)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.config = readOnlyBag{bag}
	return c.config, nil
}

// RelationIDs returns the established relation ids for name, for
// example ["cluster:1"].
func (c *Context) RelationIDs(ctx context.Context, name string) ([]string, error) {
	if ids, ok := c.relationIDs[name]; ok {
		return ids, nil
	}
	out, err := c.runner.Run(ctx, "relation-ids", "--format=json", name)
	if err != nil {
		return nil, fmt.Errorf("listing %q relations: %w", name, err)
	}
	var ids []string
	if err := json.Unmarshal(out, &ids); err != nil {
		return nil, fmt.Errorf("parsing relation-ids output: %w", err)
	}
	c.relationIDs[name] = ids
	return ids, nil
}

// RelationID returns the single established relation id for name, or
// ErrNoRelation when none is.
func (c *Context) RelationID(ctx context.Context, name string) (string, error) {
	ids, err := c.RelationIDs(ctx, name)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%q: %w", name, ErrNoRelation)
	}
	return ids[0], nil
}

// RelationList returns the remote units present on a relation.
func (c *Context) RelationList(ctx context.Context, relationID string) ([]string, error) {
	out, err := c.runner.Run(ctx, "relation-list", "--format=json", "-r", relationID)
	if err != nil {
		return nil, fmt.Errorf("listing units on %s: %w", relationID, err)
	}
	var units []string
	if err := json.Unmarshal(out, &units); err != nil {
		return nil, fmt.Errorf("parsing relation-list output: %w", err)
	}
	return units, nil
}

// AppBag returns the application-wide databag of app on a relation.
// Writes go through relation-set --app; the agent refuses them unless
// this unit leads its application and owns that side.
func (c *Context) AppBag(ctx context.Context, relationID, app string) (relation.Bag, error) {
	return c.bag(ctx, relationID, app, true)
}

// UnitBag returns the per-unit databag of unit on a relation.
func (c *Context) UnitBag(ctx context.Context, relationID, unit string) (relation.Bag, error) {
	return c.bag(ctx, relationID, unit, false)
}

func (c *Context) bag(ctx context.Context, relationID, member string, app bool) (relation.Bag, error) {
	key := relationID + "\x00" + member
	if app {
		key += "\x00app"
	}
	if b, ok := c.bags[key]; ok {
		return b, nil
	}
	b, err := newRelationBag(ctx, c.runner, relationID, member, app)
	if err != nil {
		return nil, err
	}
	c.bags[key] = b
	return b, nil
}

// StatusSet reports the unit's workload status to the agent.
func (c *Context) StatusSet(ctx context.Context, kind StatusKind, message string) error {
	if _, err := c.runner.Run(ctx, "status-set", string(kind), message); err != nil {
		return fmt.Errorf("setting status: %w", err)
	}
	return nil
}

// ApplicationVersionSet publishes the running workload version.
func (c *Context) ApplicationVersionSet(ctx context.Context, version string) error {
	if _, err := c.runner.Run(ctx, "application-version-set", version); err != nil {
		return fmt.Errorf("setting application version: %w", err)
	}
	return nil
}

// ActionParams returns the parameters of the running action as a
// read-only string bag, flattened the same way databags are.
func (c *Context) ActionParams(ctx context.Context) (relation.Bag, error) {
	if c.actions != nil {
		return c.actions, nil
	}
	out, err := c.runner.Run(ctx, "action-get", "--format=json")
	if err != nil {
		return nil, fmt.Errorf("reading action parameters: %w", err)
	}
	bag, err := decodeStringBag(out)
	if err != nil {
		return nil, fmt.Errorf("action parameters: %w", err)
	}
	c.actions = readOnlyBag{bag}
	return c.actions, nil
}

// ActionSetResults records result values for the running action. Keys
// are passed in sorted order so invocations are deterministic.
func (c *Context) ActionSetResults(ctx context.Context, results map[string]string) error {
	if len(results) == 0 {
		return nil
	}
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, k+"="+results[k])
	}
	if _, err := c.runner.Run(ctx, "action-set", args...); err != nil {
		return fmt.Errorf("setting action results: %w", err)
	}
	return nil
}

// ActionFail marks the running action failed with a message for the
// caller.
func (c *Context) ActionFail(ctx context.Context, message string) error {
	if _, err := c.runner.Run(ctx, "action-fail", message); err != nil {
		return fmt.Errorf("failing action: %w", err)
	}
	return nil
}

// ActionLog reports progress to the action caller.
func (c *Context) ActionLog(ctx context.Context, message string) error {
	if _, err := c.runner.Run(ctx, "action-log", message); err != nil {
		return fmt.Errorf("logging to action: %w", err)
	}
	return nil
}

// JujuLog writes one line to the Juju debug log at the given level
// (DEBUG, INFO, WARNING or ERROR).
func (c *Context) JujuLog(ctx context.Context, level, message string) error {
	_, err := c.runner.Run(ctx, "juju-log", "--log-level", level, message)
	return err
}

// readOnlyBag guards host-owned bags (config, action parameters)
// against accidental binding: they have no writable side.
type readOnlyBag struct {
	*relation.MapBag
}

func (readOnlyBag) Set(key, value string) error {
	return fmt.Errorf("%q: bag is read-only", key)
}
