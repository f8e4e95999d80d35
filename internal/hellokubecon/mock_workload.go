package hellokubecon

import (
	"context"
	"io"
	"os"

	"github.com/charmkit/hello-kubecon/internal/pebble"
)

// MockWorkload implements the Workload interface for testing
type MockWorkload struct {
	info     *pebble.SystemInfo
	infoErr  error
	services []pebble.ServiceInfo

	Layers    []*pebble.Layer
	Labels    []string
	Combined  []bool
	Started   int
	Replanned int
	Pushed    map[string][]byte

	LayerErr error
	PushErr  error
}

// NewMockWorkload creates a MockWorkload answering as a healthy daemon
func NewMockWorkload() *MockWorkload {
	return &MockWorkload{
		info:   &pebble.SystemInfo{Version: "1.4.0"},
		Pushed: make(map[string][]byte),
	}
}

// SetVersion sets the version SystemInfo reports
func (m *MockWorkload) SetVersion(version string) {
	m.info = &pebble.SystemInfo{Version: version}
}

// SetUnreachable makes every SystemInfo call fail with err
func (m *MockWorkload) SetUnreachable(err error) {
	m.infoErr = err
}

// SetServices sets the state Services reports
func (m *MockWorkload) SetServices(services ...pebble.ServiceInfo) {
	m.services = services
}

// SystemInfo returns the mock daemon identity
func (m *MockWorkload) SystemInfo(ctx context.Context) (*pebble.SystemInfo, error) {
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return m.info, nil
}

// AddLayer records the submitted layer
func (m *MockWorkload) AddLayer(ctx context.Context, label string, layer *pebble.Layer, combine bool) error {
	if m.LayerErr != nil {
		return m.LayerErr
	}
	m.Labels = append(m.Labels, label)
	m.Layers = append(m.Layers, layer)
	m.Combined = append(m.Combined, combine)
	return nil
}

// AutoStart counts start requests
func (m *MockWorkload) AutoStart(ctx context.Context) error {
	m.Started++
	return nil
}

// Replan counts replan requests
func (m *MockWorkload) Replan(ctx context.Context) error {
	m.Replanned++
	return nil
}

// Services returns the scripted service state
func (m *MockWorkload) Services(ctx context.Context, names ...string) ([]pebble.ServiceInfo, error) {
	return m.services, nil
}

// Push records the written file content
func (m *MockWorkload) Push(ctx context.Context, path string, source io.Reader, permissions os.FileMode) error {
	if m.PushErr != nil {
		return m.PushErr
	}
	data, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	m.Pushed[path] = data
	return nil
}
