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

package hellokubecon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"

	"github.com/charmkit/hello-kubecon/internal/charm"
	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/ingress"
	"github.com/charmkit/hello-kubecon/internal/pebble"
	"github.com/charmkit/hello-kubecon/internal/relation"
	"github.com/charmkit/hello-kubecon/internal/status"
)

const (
	// serviceName is the workload service supervised by Pebble, and the
	// label of the layer that defines it.
	serviceName = "gosherve"

	// webRoot is where gosherve serves static content from inside the
	// workload container; the pull-site action writes there.
	webRoot = "/srv"

	// servicePort is the port gosherve listens on, published to the
	// ingress provider.
	servicePort = 8080

	fetchTimeout = 30 * time.Second
	maxSiteBytes = 64 << 20
)

// minDaemonVersion is the oldest workload daemon the charm drives;
// earlier ones lack the files API the pull-site action needs.
var minDaemonVersion = semver.MustParse("1.1.0")

// app carries the charm's collaborators across handlers. Each dispatch
// runs in a fresh process, so there is no state here beyond them.
type app struct {
	log      logr.Logger
	workload Workload
	fetch    *http.Client
}

// New assembles the hello-kubecon charm over a workload control plane.
func New(log logr.Logger, workload Workload) *charm.Charm {
	a := &app{
		log:      log,
		workload: workload,
		fetch:    &http.Client{Timeout: fetchTimeout},
	}

	c := charm.New("hello-kubecon", log)
	withConfig := charm.Parse(charm.ConfigData(ConfigSchema))

	c.Handle("install", withConfig(a.refreshStatus))
	c.Handle("update-status", withConfig(a.refreshStatus))
	c.Handle("config-changed", withConfig(a.configChanged))
	c.Handle(serviceName+"-pebble-ready", withConfig(a.pebbleReady))
	c.Handle("leader-elected", a.leaderElected)
	c.Handle(ClusterEndpoint+"-relation-created", a.clusterCreated)
	c.Handle(ClusterEndpoint+"-relation-changed",
		charm.Parse(charm.LocalAppData(ClusterSchema))(a.clusterChanged))
	c.Handle(ingress.Endpoint+"-relation-joined", withConfig(a.ingressRelation))
	c.Handle(ingress.Endpoint+"-relation-changed", withConfig(a.ingressRelation))
	c.HandleAction("pull-site",
		charm.Parse(charm.ActionParams(PullSiteSchema))(a.pullSite))
	return c
}

// gosherveLayer renders the Pebble layer running gosherve against the
// configured redirect map.
func gosherveLayer(cfg *relation.Record) *pebble.Layer {
	return &pebble.Layer{
		Summary:     "gosherve layer",
		Description: "pebble config layer for gosherve",
		Services: map[string]pebble.Service{
			serviceName: {
				Override: pebble.OverrideReplace,
				Summary:  "gosherve",
				Command:  "/gosherve",
				Startup:  pebble.StartupEnabled,
				Environment: map[string]string{
					"REDIRECT_MAP_URL": cfg.String("redirect_map"),
					"WEBROOT":          webRoot,
				},
			},
		},
	}
}

// ingressRequest builds the ingress request record for the current
// configuration.
func (a *app) ingressRequest(ev *hook.Event, cfg *relation.Record) (*ingress.Requirer, error) {
	return ingress.NewRequirer(a.log, map[string]any{
		"service_hostname": cfg.String("external_hostname"),
		"service_name":     ev.AppName(),
		"service_port":     servicePort,
	})
}

// observe gathers the status facts a handler can see: configuration
// validity, daemon reachability and workload service state.
func (a *app) observe(ctx context.Context, configErr error) status.Facts {
	facts := status.Facts{ConfigErr: configErr, Service: serviceName}
	if _, err := a.workload.SystemInfo(ctx); err != nil {
		return facts
	}
	facts.PebbleReady = true

	services, err := a.workload.Services(ctx, serviceName)
	if err != nil {
		a.log.V(1).Info("cannot read service state", "error", err.Error())
		return facts
	}
	for _, svc := range services {
		if svc.Name == serviceName && svc.Running() {
			facts.ServiceActive = true
		}
	}
	return facts
}

// refreshStatus recomputes and reports the unit status. It backs the
// install and update-status hooks, which change nothing themselves.
func (a *app) refreshStatus(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	var configErr error
	if verr := parsed[0].Invalid(); verr != nil {
		configErr = verr
	}
	return status.Apply(ctx, ev.Tools, a.observe(ctx, configErr))
}

// configChanged pushes the new configuration everywhere it matters:
// the ingress request record, the workload layer, the unit status.
func (a *app) configChanged(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	if verr := parsed[0].Invalid(); verr != nil {
		a.log.Info("configuration is invalid", "error", verr.Error())
		return status.Apply(ctx, ev.Tools, a.observe(ctx, verr))
	}
	cfg := parsed[0].Record()

	request, err := a.ingressRequest(ev, cfg)
	if err != nil {
		return err
	}
	if err := request.UpdateConfig(ctx, ev, map[string]any{
		"service_hostname": cfg.String("external_hostname"),
	}); err != nil {
		return err
	}

	if err := a.updateLayer(ctx, cfg); err != nil {
		return err
	}
	return status.Apply(ctx, ev.Tools, a.observe(ctx, nil))
}

// updateLayer re-renders the gosherve layer and replans, so a changed
// redirect map restarts the service. Before the container's daemon is
// up there is no plan to update; the pebble-ready hook will render it.
func (a *app) updateLayer(ctx context.Context, cfg *relation.Record) error {
	if _, err := a.workload.SystemInfo(ctx); err != nil {
		a.log.V(1).Info("workload container not ready, skipping layer update", "error", err.Error())
		return nil
	}
	if err := a.workload.AddLayer(ctx, serviceName, gosherveLayer(cfg), true); err != nil {
		return err
	}
	return a.workload.Replan(ctx)
}

// pebbleReady starts the workload once its container can be driven.
func (a *app) pebbleReady(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	if verr := parsed[0].Invalid(); verr != nil {
		a.log.Info("configuration is invalid, not starting the workload", "error", verr.Error())
		return status.Apply(ctx, ev.Tools, a.observe(ctx, verr))
	}
	cfg := parsed[0].Record()

	if err := a.workload.AddLayer(ctx, serviceName, gosherveLayer(cfg), true); err != nil {
		return err
	}
	if err := a.workload.AutoStart(ctx); err != nil {
		return err
	}
	if err := a.publishWorkloadVersion(ctx, ev); err != nil {
		return err
	}
	return status.Apply(ctx, ev.Tools, a.observe(ctx, nil))
}

// publishWorkloadVersion reports the workload daemon version to the
// host. A version below the supported floor is logged, not fatal: the
// service still runs, only the pull-site action may misbehave.
func (a *app) publishWorkloadVersion(ctx context.Context, ev *hook.Event) error {
	info, err := a.workload.SystemInfo(ctx)
	if err != nil {
		return err
	}
	version, err := semver.NewVersion(info.Version)
	if err != nil {
		a.log.V(1).Info("cannot parse workload daemon version", "version", info.Version)
		return nil
	}
	if version.Compare(minDaemonVersion) < 0 {
		a.log.Info("workload daemon older than supported",
			"version", info.Version, "minimum", minDaemonVersion.String())
	}
	return ev.Tools.ApplicationVersionSet(ctx, info.Version)
}

// clusterCreated seeds the peer relation's application databag. Only
// the leader may write it; everyone else picks the seed up from the
// relation-changed hook that follows.
func (a *app) clusterCreated(ctx context.Context, ev *hook.Event, _ ...relation.ReadResult) error {
	leader, err := ev.Tools.IsLeader(ctx)
	if err != nil {
		return err
	}
	if !leader {
		a.log.V(1).Info("not leader, waiting for the seed")
		return nil
	}
	return a.seedCluster(ctx, ev.Tools, ev.RelationID, ev.AppName())
}

func (a *app) seedCluster(ctx context.Context, tools *hook.Context, relationID, appName string) error {
	record, verr := ClusterSchema.New(clusterSeed())
	if verr != nil {
		return verr
	}
	bag, err := tools.AppBag(ctx, relationID, appName)
	if err != nil {
		return err
	}
	a.log.Info("seeding cluster data", "relation", relationID)
	return record.Write(bag)
}

// clusterChanged reads the seeded peer data back. Incomplete data just
// means the leader has not finished seeding, so it is logged and
// waited out rather than failing the hook.
func (a *app) clusterChanged(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	if verr := parsed[0].Invalid(); verr != nil {
		a.log.V(1).Info("cluster data not seeded yet", "error", verr.Error())
		return nil
	}
	record := parsed[0].Record()
	a.log.Info("cluster data updated",
		"my_key", record.Float("my_key"),
		"entries", len(record.List("complex_property")))
	return nil
}

// leaderElected makes the new leader take over the cluster record. A
// valid record is bound so later mutations write through; a missing or
// half-seeded one is replaced by a fresh seed, covering a leader that
// died mid-seed.
func (a *app) leaderElected(ctx context.Context, ev *hook.Event, _ ...relation.ReadResult) error {
	record, err := NewContext(a.log, ev.Tools).ClusterData(ctx, ModeWrite)
	if err != nil {
		return err
	}
	if record != nil {
		return nil
	}

	relationID, err := ev.Tools.RelationID(ctx, ClusterEndpoint)
	if errors.Is(err, hook.ErrNoRelation) {
		a.log.V(1).Info("no cluster relation to seed yet")
		return nil
	}
	if err != nil {
		return err
	}
	return a.seedCluster(ctx, ev.Tools, relationID, ev.AppName())
}

// ingressRelation publishes the ingress request when the relation
// forms. With an invalid configuration there is nothing to publish;
// the blocked status tells the operator what to fix.
func (a *app) ingressRelation(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	if verr := parsed[0].Invalid(); verr != nil {
		a.log.Info("holding the ingress request until the configuration is valid", "error", verr.Error())
		return status.Apply(ctx, ev.Tools, a.observe(ctx, verr))
	}
	request, err := a.ingressRequest(ev, parsed[0].Record())
	if err != nil {
		return err
	}
	return request.HandleRelation(ctx, ev)
}

// pullSite downloads site content and drops it into the workload's web
// root. Parameter and fetch failures are reported to the action caller
// through action-fail; only infrastructure faults fail the dispatch.
func (a *app) pullSite(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
	if verr := parsed[0].Invalid(); verr != nil {
		return ev.Tools.ActionFail(ctx, verr.Error())
	}
	rawURL := parsed[0].Record().String("url")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("parsing url: %v", err))
	}
	if err := ev.Tools.ActionLog(ctx, "fetching "+rawURL); err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("building request: %v", err))
	}
	response, err := a.fetch.Do(request)
	if err != nil {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("fetching site: %v", err))
	}
	defer response.Body.Close() //nolint:errcheck
	if response.StatusCode != http.StatusOK {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("fetching site: unexpected status %s", response.Status))
	}
	content, err := io.ReadAll(io.LimitReader(response.Body, maxSiteBytes+1))
	if err != nil {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("reading site content: %v", err))
	}
	if len(content) > maxSiteBytes {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("site content exceeds %d bytes", maxSiteBytes))
	}

	name := path.Base(parsedURL.Path)
	if name == "." || name == "/" {
		name = "index.html"
	}
	target := path.Join(webRoot, name)
	if err := a.workload.Push(ctx, target, bytes.NewReader(content), 0o644); err != nil {
		return ev.Tools.ActionFail(ctx, fmt.Sprintf("writing %s: %v", target, err))
	}

	a.log.Info("site content updated", "path", target, "bytes", len(content))
	return ev.Tools.ActionSetResults(ctx, map[string]string{
		"path": target,
		"size": strconv.Itoa(len(content)),
	})
}
