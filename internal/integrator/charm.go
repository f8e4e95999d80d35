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

// Package integrator implements the nginx-ingress-integrator charm:
// the provider side of the ingress relation. It parses the request a
// requirer publishes into its application databag and materializes a
// matching Ingress resource in the cluster.
package integrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/charmkit/hello-kubecon/internal/charm"
	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/ingress"
	"github.com/charmkit/hello-kubecon/internal/relation"
)

// app carries the charm's collaborators across handlers.
type app struct {
	log    logr.Logger
	client client.Client
}

// New assembles the integrator charm over a cluster client.
func New(log logr.Logger, c client.Client) *charm.Charm {
	a := &app{log: log, client: c}

	ch := charm.New("nginx-ingress-integrator", log)
	ch.Handle("install", a.refreshStatus)
	ch.Handle("update-status", a.refreshStatus)
	ch.Handle(ingress.Endpoint+"-relation-changed",
		charm.Parse(charm.RemoteAppData(ingress.Schema))(a.relationChanged))
	ch.Handle(ingress.Endpoint+"-relation-broken", a.relationBroken)
	return ch
}

// refreshStatus reports how many ingress routes the charm serves. The
// charm is healthy with zero relations; it just has nothing to do.
func (a *app) refreshStatus(ctx context.Context, ev *hook.Event, _ ...relation.ReadResult) error {
	var list networkingv1.IngressList
	if err := a.client.List(ctx, &list, client.MatchingLabels{managedByKey: managedByValue}); err != nil {
		return fmt.Errorf("listing managed ingresses: %w", err)
	}
	if len(list.Items) == 0 {
		return ev.Tools.StatusSet(ctx, hook.StatusActive, "")
	}
	return ev.Tools.StatusSet(ctx, hook.StatusActive,
		fmt.Sprintf("Serving ingress for %d relation(s)", len(list.Items)))
}

// relationChanged reconciles the Ingress a requirer asked for. The
// request arrives pre-parsed; an invalid one blocks the unit with the
// offending field names, the requirer's way of learning it sent an
// incomplete request is the operator reading that status.
func (a *app) relationChanged(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	leader, err := ev.Tools.IsLeader(ctx)
	if err != nil {
		return err
	}
	if !leader {
		a.log.V(1).Info("not leader, leaving the cluster to the leader unit")
		return nil
	}

	if verr := parsed[0].Invalid(); verr != nil {
		a.log.Info("ingress request rejected", "remote", ev.RemoteApp, "error", verr.Error())
		return ev.Tools.StatusSet(ctx, hook.StatusBlocked,
			"Missing or invalid ingress fields: "+strings.Join(violationFields(verr), ", "))
	}
	record := parsed[0].Record()

	namespace := record.String("service_namespace")
	if namespace == "" {
		namespace = ev.ModelName
	}
	if err := a.applyIngress(ctx, buildIngress(record, namespace, ev.RelationID)); err != nil {
		return err
	}

	serviceName := record.String("service_name")
	ready, err := a.serviceReady(ctx, serviceName, namespace)
	if err != nil {
		return err
	}
	if !ready {
		return ev.Tools.StatusSet(ctx, hook.StatusWaiting,
			fmt.Sprintf("Waiting for service %q", serviceName))
	}
	return ev.Tools.StatusSet(ctx, hook.StatusActive, "Serving at "+ingress.URL(record))
}

// relationBroken removes the Ingress resources created for the
// departing relation, found by label since its databag is gone.
func (a *app) relationBroken(ctx context.Context, ev *hook.Event, _ ...relation.ReadResult) error {
	leader, err := ev.Tools.IsLeader(ctx)
	if err != nil {
		return err
	}
	if !leader {
		return nil
	}

	var list networkingv1.IngressList
	err = a.client.List(ctx, &list, client.MatchingLabels{
		managedByKey: managedByValue,
		relationKey:  relationLabel(ev.RelationID),
	})
	if err != nil {
		return fmt.Errorf("listing ingresses for %s: %w", ev.RelationID, err)
	}
	for i := range list.Items {
		ing := &list.Items[i]
		a.log.Info("removing ingress", "name", ing.Name, "namespace", ing.Namespace)
		if err := a.client.Delete(ctx, ing); client.IgnoreNotFound(err) != nil {
			return fmt.Errorf("deleting ingress %s: %w", ing.Name, err)
		}
	}
	return ev.Tools.StatusSet(ctx, hook.StatusActive, "")
}

// applyIngress creates the Ingress or updates the existing one in
// place.
func (a *app) applyIngress(ctx context.Context, desired *networkingv1.Ingress) error {
	existing := &networkingv1.Ingress{}
	err := a.client.Get(ctx, client.ObjectKeyFromObject(desired), existing)
	if err != nil {
		if client.IgnoreNotFound(err) != nil {
			return fmt.Errorf("checking existing ingress: %w", err)
		}
		a.log.Info("creating ingress", "name", desired.Name, "namespace", desired.Namespace)
		if err := a.client.Create(ctx, desired); err != nil {
			return fmt.Errorf("creating ingress: %w", err)
		}
		return nil
	}

	existing.Labels = desired.Labels
	existing.Annotations = desired.Annotations
	existing.Spec = desired.Spec
	a.log.Info("updating ingress", "name", desired.Name, "namespace", desired.Namespace)
	if err := a.client.Update(ctx, existing); err != nil {
		return fmt.Errorf("updating ingress: %w", err)
	}
	return nil
}

// serviceReady reports whether the Service the Ingress routes to
// exists yet. Requirers usually relate before their workload's Service
// lands, so absence is a waiting state, not an error.
func (a *app) serviceReady(ctx context.Context, name, namespace string) (bool, error) {
	var svc corev1.Service
	err := a.client.Get(ctx, client.ObjectKey{Name: name, Namespace: namespace}, &svc)
	if err == nil {
		return true, nil
	}
	if client.IgnoreNotFound(err) != nil {
		return false, fmt.Errorf("checking backing service: %w", err)
	}
	return false, nil
}

// violationFields lists the offending fields of a validation failure
// in their wire (hyphenated) spelling, for operator-facing messages.
func violationFields(verr *relation.ValidationError) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ferr := range verr.Errors {
		name := strings.ReplaceAll(ferr.Field, "_", "-")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
