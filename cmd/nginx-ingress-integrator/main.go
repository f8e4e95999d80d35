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

// The nginx-ingress-integrator charm entrypoint.
package main

import (
	"context"
	"flag"
	"os"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/integrator"
	"github.com/charmkit/hello-kubecon/internal/kube"
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
	if err := run(env, runner); err != nil {
		tools := hook.NewContext(env, runner)
		_ = tools.JujuLog(context.Background(), "ERROR", err.Error())
		os.Exit(1)
	}
}

func run(env *hook.Env, runner hook.Runner) error {
	c, err := kube.NewClient()
	if err != nil {
		return err
	}
	ch := integrator.New(hook.NewJujuLogger(runner), c)
	return ch.Run(ctrl.SetupSignalHandler(), hook.NewEvent(env, runner))
}
