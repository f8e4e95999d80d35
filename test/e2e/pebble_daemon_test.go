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
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmkit/hello-kubecon/internal/pebble"
)

// pebbleDaemon is an in-process stand-in for a workload container's
// Pebble. It serves the daemon's wire protocol over a unix socket and
// keeps the layer, service and file state a charm manipulates, so the
// production client code runs unmodified against it.
type pebbleDaemon struct {
	socket string
	server *http.Server

	mu       sync.Mutex
	version  string
	labels   []string
	layers   map[string]*pebble.Layer
	statuses map[string]pebble.ServiceStatus
	files    map[string][]byte
	changes  int
}

func startPebbleDaemon(dir, version string) (*pebbleDaemon, error) {
	d := &pebbleDaemon{
		socket:   filepath.Join(dir, "pebble.socket"),
		version:  version,
		layers:   make(map[string]*pebble.Layer),
		statuses: make(map[string]pebble.ServiceStatus),
		files:    make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/system-info", d.systemInfo)
	mux.HandleFunc("POST /v1/layers", d.addLayer)
	mux.HandleFunc("POST /v1/services", d.serviceControl)
	mux.HandleFunc("GET /v1/services", d.services)
	mux.HandleFunc("GET /v1/changes/{id}/wait", d.waitChange)
	mux.HandleFunc("POST /v1/files", d.writeFiles)

	listener, err := net.Listen("unix", d.socket)
	if err != nil {
		return nil, err
	}
	d.server = &http.Server{Handler: mux}
	go func() { _ = d.server.Serve(listener) }()
	return d, nil
}

func (d *pebbleDaemon) Close() error {
	return d.server.Close()
}

// Plan returns the merged view of every submitted layer.
func (d *pebbleDaemon) Plan() *pebble.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.planLocked()
}

// File returns the content pushed to path, nil when nothing was.
func (d *pebbleDaemon) File(path string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files[path]
}

// SetServiceStatus forces a service's state, simulating a crash or a
// manual stop between hook invocations.
func (d *pebbleDaemon) SetServiceStatus(name string, status pebble.ServiceStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[name] = status
}

func (d *pebbleDaemon) planLocked() *pebble.Layer {
	merged := &pebble.Layer{}
	for _, label := range d.labels {
		_ = merged.Combine(d.layers[label])
	}
	return merged
}

func (d *pebbleDaemon) systemInfo(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	version := d.version
	d.mu.Unlock()
	writeSync(w, map[string]string{"version": version})
}

func (d *pebbleDaemon) addLayer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action  string `json:"action"`
		Combine bool   `json:"combine"`
		Label   string `json:"label"`
		Layer   string `json:"layer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	layer, err := pebble.ParseLayer([]byte(payload.Layer))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	existing, ok := d.layers[payload.Label]
	switch {
	case ok && payload.Combine:
		if err := existing.Combine(layer); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case ok:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("layer %q already exists", payload.Label))
		return
	default:
		d.layers[payload.Label] = layer
		d.labels = append(d.labels, payload.Label)
	}
	writeSync(w, true)
}

func (d *pebbleDaemon) serviceControl(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action   string   `json:"action"`
		Services []string `json:"services"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	plan := d.planLocked()
	switch payload.Action {
	case "autostart", "replan":
		for name, svc := range plan.Services {
			if svc.Startup == pebble.StartupEnabled {
				d.statuses[name] = pebble.StatusActive
			}
		}
	case "start":
		for _, name := range payload.Services {
			if _, ok := plan.Services[name]; !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("service %q is not in the plan", name))
				return
			}
			d.statuses[name] = pebble.StatusActive
		}
	case "stop":
		for _, name := range payload.Services {
			d.statuses[name] = pebble.StatusInactive
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", payload.Action))
		return
	}
	d.changes++
	writeAsync(w, strconv.Itoa(d.changes))
}

func (d *pebbleDaemon) waitChange(w http.ResponseWriter, r *http.Request) {
	writeSync(w, map[string]any{
		"id":     r.PathValue("id"),
		"kind":   "service-control",
		"status": "Done",
		"ready":  true,
	})
}

func (d *pebbleDaemon) services(w http.ResponseWriter, r *http.Request) {
	wanted := make(map[string]bool)
	if raw := r.URL.Query().Get("names"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			wanted[name] = true
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	plan := d.planLocked()
	names := make([]string, 0, len(plan.Services))
	for name := range plan.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]map[string]any, 0, len(names))
	for _, name := range names {
		if len(wanted) > 0 && !wanted[name] {
			continue
		}
		status := d.statuses[name]
		if status == "" {
			status = pebble.StatusInactive
		}
		infos = append(infos, map[string]any{
			"name":    name,
			"startup": plan.Services[name].Startup,
			"current": status,
		})
	}
	writeSync(w, infos)
}

func (d *pebbleDaemon) writeFiles(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	form := multipart.NewReader(r.Body, params["boundary"])

	// File parts are matched to request entries by order: the client
	// sends the destination path as the part filename, but Go's
	// multipart reader trims filenames to their base name.
	var payload struct {
		Action string `json:"action"`
		Files  []struct {
			Path        string `json:"path"`
			MakeDirs    bool   `json:"make-dirs"`
			Permissions string `json:"permissions"`
		} `json:"files"`
	}
	var results []map[string]any
	fileIndex := 0
	for {
		part, err := form.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		switch part.FormName() {
		case "request":
			if err := json.NewDecoder(part).Decode(&payload); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		case "files":
			content, err := io.ReadAll(part)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			if fileIndex >= len(payload.Files) {
				writeError(w, http.StatusBadRequest, "file part without a matching request entry")
				return
			}
			path := payload.Files[fileIndex].Path
			fileIndex++

			d.mu.Lock()
			d.files[path] = content
			d.mu.Unlock()
			results = append(results, map[string]any{"path": path})
		}
	}
	writeSync(w, results)
}

func writeSync(w http.ResponseWriter, result any) {
	writeEnvelope(w, map[string]any{
		"type":        "sync",
		"status-code": http.StatusOK,
		"status":      "OK",
		"result":      result,
	})
}

func writeAsync(w http.ResponseWriter, change string) {
	writeEnvelope(w, map[string]any{
		"type":        "async",
		"status-code": http.StatusAccepted,
		"status":      "Accepted",
		"change":      change,
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeEnvelope(w, map[string]any{
		"type":        "error",
		"status-code": code,
		"status":      http.StatusText(code),
		"result":      map[string]string{"message": message},
	})
}

func writeEnvelope(w http.ResponseWriter, envelope map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope)
}
