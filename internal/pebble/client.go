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

// Package pebble is a client for the Pebble control plane exposed on a
// workload container's unix socket.
package pebble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const socketEnv = "PEBBLE_SOCKET"

// defaultChangeTimeout bounds how long WaitChange lets the daemon hold
// the request open before it reports the change as still running.
const defaultChangeTimeout = 30 * time.Second

// SocketPath resolves the control socket for the named workload
// container, honoring $PEBBLE_SOCKET when the agent exports it.
func SocketPath(lookup func(string) string, workload string) string {
	if s := lookup(socketEnv); s != "" {
		return s
	}
	return filepath.Join("/charm", "containers", workload, "pebble.socket")
}

// Client talks to one Pebble daemon over its unix control socket.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for the daemon listening on socket.
func NewClient(socket string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "unix", socket)
		},
	}
	return &Client{
		http:    &http.Client{Transport: transport},
		baseURL: "http://localhost",
	}
}

// APIError is an error response from the daemon.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pebble: %s", e.Status)
	}
	return fmt.Sprintf("pebble: %s", e.Message)
}

// response is the daemon's envelope around every result.
type response struct {
	Type       string          `json:"type"`
	StatusCode int             `json:"status-code"`
	Status     string          `json:"status"`
	Change     string          `json:"change"`
	Result     json.RawMessage `json:"result"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pebble: %w", err)
	}
	defer resp.Body.Close()

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("pebble: decoding %s response: %w", path, err)
	}
	if envelope.Type == "error" {
		apiErr := &APIError{StatusCode: envelope.StatusCode, Status: envelope.Status}
		var result struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Result, &result) == nil {
			apiErr.Message = result.Message
		}
		return nil, apiErr
	}
	return &envelope, nil
}

// doSync performs a request whose envelope carries the result directly,
// decoding it into out when out is non-nil.
func (c *Client) doSync(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	envelope, err := c.do(ctx, method, path, query, contentType, reader)
	if err != nil {
		return err
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("pebble: decoding %s result: %w", path, err)
	}
	return nil
}

// doAsync performs a request the daemon answers with a change ID.
func (c *Client) doAsync(ctx context.Context, method, path string, body any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	envelope, err := c.do(ctx, method, path, nil, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if envelope.Type != "async" || envelope.Change == "" {
		return "", fmt.Errorf("pebble: %s: expected an async change, got %q", path, envelope.Type)
	}
	return envelope.Change, nil
}

// SystemInfo identifies the daemon.
type SystemInfo struct {
	Version string `json:"version"`
}

// SystemInfo fetches the daemon's version information.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.doSync(ctx, http.MethodGet, "/v1/system-info", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type addLayerPayload struct {
	Action  string `json:"action"`
	Combine bool   `json:"combine"`
	Label   string `json:"label"`
	Format  string `json:"format"`
	Layer   string `json:"layer"`
}

// AddLayer submits a configuration layer under label. With combine set
// the daemon folds it into an existing layer of the same label instead
// of appending.
func (c *Client) AddLayer(ctx context.Context, label string, layer *Layer, combine bool) error {
	data, err := layer.YAML()
	if err != nil {
		return fmt.Errorf("rendering layer %q: %w", label, err)
	}
	payload := addLayerPayload{
		Action:  "add",
		Combine: combine,
		Label:   label,
		Format:  "yaml",
		Layer:   string(data),
	}
	return c.doSync(ctx, http.MethodPost, "/v1/layers", nil, payload, nil)
}

type serviceAction struct {
	Action   string   `json:"action"`
	Services []string `json:"services"`
}

// AutoStart starts every service whose startup is StartupEnabled.
func (c *Client) AutoStart(ctx context.Context) error {
	return c.serviceControl(ctx, "autostart", nil)
}

// Replan recomputes the daemon's desired service state from the
// current plan and restarts whatever changed.
func (c *Client) Replan(ctx context.Context) error {
	return c.serviceControl(ctx, "replan", nil)
}

// Start starts the named services.
func (c *Client) Start(ctx context.Context, services ...string) error {
	return c.serviceControl(ctx, "start", services)
}

// Stop stops the named services.
func (c *Client) Stop(ctx context.Context, services ...string) error {
	return c.serviceControl(ctx, "stop", services)
}

func (c *Client) serviceControl(ctx context.Context, action string, services []string) error {
	if services == nil {
		services = []string{}
	}
	changeID, err := c.doAsync(ctx, http.MethodPost, "/v1/services", serviceAction{Action: action, Services: services})
	if err != nil {
		return err
	}
	_, err = c.WaitChange(ctx, changeID)
	return err
}

// Change is the daemon's record of one asynchronous operation.
type Change struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Err     string `json:"err"`
}

// WaitChange blocks until the change is ready and reports its outcome.
func (c *Client) WaitChange(ctx context.Context, id string) (*Change, error) {
	var change Change
	query := url.Values{"timeout": []string{defaultChangeTimeout.String()}}
	if err := c.doSync(ctx, http.MethodGet, "/v1/changes/"+id+"/wait", query, nil, &change); err != nil {
		return nil, err
	}
	if change.Err != "" {
		return &change, fmt.Errorf("pebble: change %s (%s): %s", change.ID, change.Kind, change.Err)
	}
	return &change, nil
}

// ServiceStatus is the daemon's state vocabulary for one service.
type ServiceStatus string

const (
	StatusActive   ServiceStatus = "active"
	StatusInactive ServiceStatus = "inactive"
	StatusBackoff  ServiceStatus = "backoff"
	StatusError    ServiceStatus = "error"
)

// ServiceInfo describes the current state of one service.
type ServiceInfo struct {
	Name    string        `json:"name"`
	Startup string        `json:"startup"`
	Current ServiceStatus `json:"current"`
}

// Running reports whether the service is up.
func (s ServiceInfo) Running() bool {
	return s.Current == StatusActive
}

// Services lists the current state of the named services, or of every
// known service when names is empty.
func (c *Client) Services(ctx context.Context, names ...string) ([]ServiceInfo, error) {
	var query url.Values
	if len(names) > 0 {
		query = url.Values{"names": []string{strings.Join(names, ",")}}
	}
	var infos []ServiceInfo
	if err := c.doSync(ctx, http.MethodGet, "/v1/services", query, nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

type writeFilesPayload struct {
	Action string          `json:"action"`
	Files  []writeFileItem `json:"files"`
}

type writeFileItem struct {
	Path        string `json:"path"`
	MakeDirs    bool   `json:"make-dirs"`
	Permissions string `json:"permissions,omitempty"`
}

type fileResult struct {
	Path  string `json:"path"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Push writes source to path inside the workload container, creating
// missing parent directories.
func (c *Client) Push(ctx context.Context, path string, source io.Reader, permissions os.FileMode) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	meta := writeFilesPayload{
		Action: "write",
		Files: []writeFileItem{{
			Path:        path,
			MakeDirs:    true,
			Permissions: strconv.FormatUint(uint64(permissions.Perm()), 8),
		}},
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	part, err := form.CreateFormField("request")
	if err != nil {
		return err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return err
	}
	// The daemon matches file parts to request entries by filename.
	file, err := form.CreateFormFile("files", path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, source); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}

	envelope, err := c.do(ctx, http.MethodPost, "/v1/files", nil, form.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	var results []fileResult
	if err := json.Unmarshal(envelope.Result, &results); err != nil {
		return fmt.Errorf("pebble: decoding write result: %w", err)
	}
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("pebble: writing %s: %s", r.Path, r.Error.Message)
		}
	}
	return nil
}
