//go:build e2e
// +build e2e

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

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/charmkit/hello-kubecon/internal/hellokubecon"
	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/pebble"
	"github.com/charmkit/hello-kubecon/internal/status"
)

const charmConfig = `{"external-hostname": "hellokubecon.juju", "redirect-map": "https://jnsgr.uk/demo-routes"}`

var _ = Describe("hello-kubecon dispatch", func() {
	var (
		daemon   *pebbleDaemon
		workload *pebble.Client
		runner   *hook.MockRunner
	)

	BeforeEach(func() {
		var err error
		daemon, err = startPebbleDaemon(GinkgoT().TempDir(), "1.4.0")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = daemon.Close() })

		workload = pebble.NewClient(daemon.socket)
		runner = hook.NewMockRunner().
			Respond("is-leader", "true").
			Respond("config-get", charmConfig).
			Respond("relation-get", "{}").
			Respond("relation-ids", "[]")
	})

	hookEnv := func(name string) *hook.Env {
		return &hook.Env{
			Hook:      name,
			UnitName:  "hello-kubecon/0",
			ModelName: "welcome-k8s",
		}
	}

	dispatch := func(env *hook.Env) error {
		ch := hellokubecon.New(GinkgoLogr, workload)
		return ch.Run(context.Background(), hook.NewEvent(env, runner))
	}

	pebbleReady := func() {
		env := hookEnv("gosherve-pebble-ready")
		env.Workload = "gosherve"
		Expect(dispatch(env)).To(Succeed())
	}

	It("starts the workload when its container reports ready", func() {
		pebbleReady()

		By("submitting the service layer")
		svc, ok := daemon.Plan().Services["gosherve"]
		Expect(ok).To(BeTrue())
		Expect(svc.Command).To(Equal("/gosherve"))
		Expect(svc.Environment).To(HaveKeyWithValue("REDIRECT_MAP_URL", "https://jnsgr.uk/demo-routes"))
		Expect(svc.Environment).To(HaveKeyWithValue("WEBROOT", "/srv"))

		By("autostarting the service")
		infos, err := workload.Services(context.Background(), "gosherve")
		Expect(err).NotTo(HaveOccurred())
		Expect(infos).To(HaveLen(1))
		Expect(infos[0].Running()).To(BeTrue())

		By("publishing the workload version")
		Expect(runner.CalledWith("application-version-set", "1.4.0")).To(BeTrue())

		By("reporting the unit active")
		Expect(runner.CalledWith("status-set", "active", "")).To(BeTrue())
	})

	It("folds a config change into the live plan", func() {
		pebbleReady()

		By("dispatching config-changed with a new redirect map")
		runner.Respond("config-get", `{"external-hostname": "hellokubecon.juju", "redirect-map": "https://jnsgr.uk/new-routes"}`)
		Expect(dispatch(hookEnv("config-changed"))).To(Succeed())

		By("combining the layers instead of stacking a second service")
		svc := daemon.Plan().Services["gosherve"]
		Expect(svc.Environment).To(HaveKeyWithValue("REDIRECT_MAP_URL", "https://jnsgr.uk/new-routes"))

		By("keeping the service running across the replan")
		infos, err := workload.Services(context.Background(), "gosherve")
		Expect(err).NotTo(HaveOccurred())
		Expect(infos[0].Running()).To(BeTrue())
		Expect(runner.CalledWith("status-set", "active", "")).To(BeTrue())
	})

	It("publishes the ingress request once the relation exists", func() {
		pebbleReady()

		runner.Respond("relation-ids", `["ingress:0"]`)
		Expect(dispatch(hookEnv("config-changed"))).To(Succeed())

		Expect(runner.CalledWith("relation-set", "-r", "ingress:0", "--app", "service-hostname=hellokubecon.juju")).To(BeTrue())
		Expect(runner.CalledWith("relation-set", "-r", "ingress:0", "--app", "service-name=hello-kubecon")).To(BeTrue())
		Expect(runner.CalledWith("relation-set", "-r", "ingress:0", "--app", "service-port=8080")).To(BeTrue())
	})

	It("serves the pull-site action end to end", func() {
		pebbleReady()

		content := []byte("<html>hello</html>")
		site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(content)
		}))
		DeferCleanup(site.Close)

		By("dispatching the action")
		runner.Respond("action-get", fmt.Sprintf(`{"url": %q}`, site.URL+"/site.html"))
		env := hookEnv("")
		env.ActionName = "pull-site"
		env.ActionUUID = "4"
		env.DispatchPath = "actions/pull-site"
		Expect(dispatch(env)).To(Succeed())

		By("writing the fetched site into the web root over the files API")
		Expect(daemon.File("/srv/site.html")).To(Equal(content))

		By("reporting the result")
		Expect(runner.CalledWith("action-set", "path=/srv/site.html", "size=18")).To(BeTrue())
		Expect(runner.CallsTo("action-fail")).To(BeEmpty())
	})

	It("flags a stopped service on update-status", func() {
		pebbleReady()
		daemon.SetServiceStatus("gosherve", pebble.StatusInactive)

		Expect(dispatch(hookEnv("update-status"))).To(Succeed())

		Expect(runner.CalledWith("status-set", "maintenance", `Service "gosherve" is not running`)).To(BeTrue())
	})

	It("waits for the container while Pebble is unreachable", func() {
		Expect(daemon.Close()).To(Succeed())

		Expect(dispatch(hookEnv("install"))).To(Succeed())

		Expect(runner.CalledWith("status-set", "waiting", status.MessagePebblePending)).To(BeTrue())
	})
})
