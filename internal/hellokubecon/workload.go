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
	"context"
	"io"
	"os"

	"github.com/charmkit/hello-kubecon/internal/pebble"
)

// Workload is the slice of the Pebble control plane this charm drives.
// *pebble.Client satisfies it; tests substitute a mock.
type Workload interface {
	// SystemInfo identifies the daemon; it doubles as the
	// can-we-connect probe.
	SystemInfo(ctx context.Context) (*pebble.SystemInfo, error)
	// AddLayer submits a configuration layer.
	AddLayer(ctx context.Context, label string, layer *pebble.Layer, combine bool) error
	// AutoStart starts the services marked for startup.
	AutoStart(ctx context.Context) error
	// Replan applies plan changes to running services.
	Replan(ctx context.Context) error
	// Services reports the current state of the named services.
	Services(ctx context.Context, names ...string) ([]pebble.ServiceInfo, error)
	// Push writes a file into the workload container.
	Push(ctx context.Context, path string, source io.Reader, permissions os.FileMode) error
}

var _ Workload = (*pebble.Client)(nil)
