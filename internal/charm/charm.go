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

// Package charm dispatches one host event to one registered handler
// and carries the parser middleware that hands handlers typed relation
// records instead of raw databags. The agent owns the event loop; a
// charm binary runs exactly one event per invocation, to completion.
package charm

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/relation"
)

// Handler is one event callback. The parsed tail is filled by Parse
// middleware, one ReadResult per declared stage, in declaration order.
type Handler func(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Charm is a named registry of hook and action handlers.
type Charm struct {
	name    string
	log     logr.Logger
	hooks   map[string]Handler
	actions map[string]Handler
}

// New creates an empty charm.
func New(name string, log logr.Logger) *Charm {
	return &Charm{
		name:    name,
		log:     log.WithName(name),
		hooks:   make(map[string]Handler),
		actions: make(map[string]Handler),
	}
}

// Handle registers the handler for one hook name, for example
// "config-changed" or "cluster-relation-changed". Registering a name
// twice replaces the earlier handler.
func (c *Charm) Handle(hookName string, h Handler) {
	c.hooks[hookName] = h
}

// HandleAction registers the handler for one action name.
func (c *Charm) HandleAction(actionName string, h Handler) {
	c.actions[actionName] = h
}

// Run executes the one handler the event selects, to completion.
// Hooks without a registered handler are a successful no-op, matching
// the host's tolerance for unimplemented hooks; an undispatched action
// is an error, since the action was declared but not wired.
func (c *Charm) Run(ctx context.Context, ev *hook.Event) error {
	if ev.IsAction() {
		h, ok := c.actions[ev.ActionName]
		if !ok {
			return fmt.Errorf("action %q has no registered handler", ev.ActionName)
		}
		c.log.V(1).Info("dispatching action", "action", ev.ActionName, "uuid", ev.ActionUUID)
		return h(ctx, ev)
	}

	h, ok := c.hooks[ev.Hook]
	if !ok {
		c.log.V(1).Info("no handler for hook, skipping", "hook", ev.Hook)
		return nil
	}
	c.log.V(1).Info("dispatching hook", "hook", ev.Hook)
	return h(ctx, ev)
}
