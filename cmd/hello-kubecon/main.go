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

// The hello-kubecon charm entrypoint. The unit agent runs this binary
// once per event with the event's context in JUJU_* environment
// variables; it dispatches to the matching handler and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/charmkit/hello-kubecon/internal/hellokubecon"
	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/metadata"
	"github.com/charmkit/hello-kubecon/internal/pebble"
)

func main() {
	opts := zap.Options{}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	setupLog := ctrl.Log.WithName("setup")

	env, err := hook.ParseOSEnv()
	if err != nil {
		setupLog.Error(err, "unable to read the dispatch environment")
		os.Exit(1)
	}

	runner := hook.ExecRunner{}
	if err := run(env, runner, hook.NewJujuLogger(runner)); err != nil {
		// A non-zero exit tells the agent the hook failed; the log
		// line tells the operator why.
		tools := hook.NewContext(env, runner)
		_ = tools.JujuLog(context.Background(), "ERROR", err.Error())
		os.Exit(1)
	}
}

func run(env *hook.Env, runner hook.Runner, log logr.Logger) error {
	dir, err := metadata.Load(env.CharmDir)
	if err != nil {
		return err
	}
	name, err := workloadContainer(env, dir.Meta)
	if err != nil {
		return err
	}

	workload := pebble.NewClient(pebble.SocketPath(os.Getenv, name))
	ch := hellokubecon.New(log, workload)
	return ch.Run(ctrl.SetupSignalHandler(), hook.NewEvent(env, runner))
}

// workloadContainer picks the container whose Pebble socket the charm
// should talk to: the event's own container when the event names one,
// otherwise the charm's sole declared container.
func workloadContainer(env *hook.Env, meta *metadata.Metadata) (string, error) {
	if env.Workload != "" {
		return env.Workload, nil
	}
	if len(meta.Containers) == 1 {
		for name := range meta.Containers {
			return name, nil
		}
	}
	return "", fmt.Errorf("charm %s declares %d containers, cannot pick one", meta.Name, len(meta.Containers))
}
