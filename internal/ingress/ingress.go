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

// Package ingress implements the requirer side of the v0 ingress
// interface: a typed request record a charm publishes into the
// relation's application databag for an ingress provider to act on.
package ingress

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/relation"
)

// Endpoint is the relation name both sides use in metadata.yaml.
const Endpoint = "ingress"

// Schema declares the interface's application databag. Three fields
// carry the minimum a provider needs to route traffic; the rest tune
// provider behavior and stay optional.
var Schema = relation.MustSchema("ingress", []relation.Field{
	{Name: "service_hostname", Kind: relation.KindString, Required: true},
	{Name: "service_name", Kind: relation.KindString, Required: true},
	{Name: "service_port", Kind: relation.KindInt, Required: true},
	{Name: "additional_hostnames", Kind: relation.KindString},
	{Name: "limit_rps", Kind: relation.KindString},
	{Name: "limit_whitelist", Kind: relation.KindString},
	{Name: "max_body_size", Kind: relation.KindString},
	{Name: "path_routes", Kind: relation.KindString},
	{Name: "retry_errors", Kind: relation.KindString},
	{Name: "rewrite_enabled", Kind: relation.KindString},
	{Name: "rewrite_target", Kind: relation.KindString},
	{Name: "service_namespace", Kind: relation.KindString},
	{Name: "session_cookie_max_age", Kind: relation.KindString},
	{Name: "tls_secret_name", Kind: relation.KindString},
})

// Requirer drives the consuming side of an ingress relation. It owns
// the request record and keeps the relation's application databag in
// step with it: the record binds on the first flush, so later updates
// write through without another copy.
type Requirer struct {
	log    logr.Logger
	record *relation.Record
}

// NewRequirer builds the request record from values keyed by declared
// field name. Missing required fields or ill-typed values fail
// construction with the aggregate validation error.
func NewRequirer(log logr.Logger, values map[string]any) (*Requirer, error) {
	record, verr := Schema.New(values)
	if verr != nil {
		return nil, verr
	}
	return &Requirer{log: log, record: record}, nil
}

// Record returns the request record.
func (r *Requirer) Record() *relation.Record {
	return r.record
}

// HandleRelation publishes the request into the event's relation
// application databag and leaves the record bound for write-through.
// Only the leader may write application data, so everyone else returns
// without touching the bag.
func (r *Requirer) HandleRelation(ctx context.Context, ev *hook.Event) error {
	leader, err := ev.Tools.IsLeader(ctx)
	if err != nil {
		return err
	}
	if !leader {
		r.log.V(1).Info("not leader, leaving the ingress request to the leader unit")
		return nil
	}
	bag, err := ev.Tools.AppBag(ctx, ev.RelationID, ev.AppName())
	if err != nil {
		return err
	}
	return r.record.Bind(bag)
}

// UpdateConfig merges updates into the request record and flushes it to
// the ingress relation when one is established. A bound record writes
// each change through as it lands; an unbound one flushes once at the
// end. Without a relation the merged record is kept for the next
// relation event.
func (r *Requirer) UpdateConfig(ctx context.Context, ev *hook.Event, updates map[string]any) error {
	leader, err := ev.Tools.IsLeader(ctx)
	if err != nil {
		return err
	}
	if !leader {
		return nil
	}

	for name, value := range updates {
		if err := r.record.Set(name, value); err != nil {
			return err
		}
	}
	if r.record.Bound() {
		return nil
	}

	relationID, err := ev.Tools.RelationID(ctx, Endpoint)
	if errors.Is(err, hook.ErrNoRelation) {
		return nil
	}
	if err != nil {
		return err
	}
	bag, err := ev.Tools.AppBag(ctx, relationID, ev.AppName())
	if err != nil {
		return err
	}
	return r.record.Bind(bag)
}
