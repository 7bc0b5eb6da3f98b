package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/t0mer/wa-llm-exporter/metric"
)

// MockCollector is a collector with injectable behaviour
type MockCollector struct {
	mu sync.Mutex

	name        string
	CollectFunc func(ctx context.Context, sink *metric.Sink) error

	collectCalls int
}

// NewMockCollector creates a mock collector. A nil fn collects nothing.
func NewMockCollector(name string, fn func(ctx context.Context, sink *metric.Sink) error) *MockCollector {
	return &MockCollector{name: name, CollectFunc: fn}
}

// Name returns the collector name
func (m *MockCollector) Name() string {
	return m.name
}

// Collect calls CollectFunc
func (m *MockCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	m.mu.Lock()
	m.collectCalls++
	fn := m.CollectFunc
	m.mu.Unlock()

	if fn == nil {
		return nil
	}
	return fn(ctx, sink)
}

// Calls returns how many times Collect ran
func (m *MockCollector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectCalls
}

// FakeDevice is one entry of the /app/devices response
type FakeDevice struct {
	Name   string `json:"name"`
	Device string `json:"device"`
}

// FakeWhatsApp serves the subset of the WhatsApp API the exporter calls.
// Configure it through the setters; requests may arrive concurrently.
type FakeWhatsApp struct {
	Server *httptest.Server

	mu            sync.Mutex
	devices       []FakeDevice
	groups        map[string]int
	devicesStatus int
	groupsStatus  int
	devicesBody   string
	delay         time.Duration
	user          string
	password      string

	deviceHeaders []string
	requests      map[string]int
}

// NewFakeWhatsApp starts a fake API server that is closed on cleanup
func NewFakeWhatsApp(t testing.TB) *FakeWhatsApp {
	t.Helper()

	fake := &FakeWhatsApp{
		groups:        make(map[string]int),
		devicesStatus: http.StatusOK,
		groupsStatus:  http.StatusOK,
		requests:      make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /app/devices", fake.handleDevices)
	mux.HandleFunc("GET /user/my/groups", fake.handleGroups)

	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Server.Close)

	return fake
}

// URL returns the base URL of the server
func (f *FakeWhatsApp) URL() string {
	return f.Server.URL
}

// SetDevices sets the devices returned by /app/devices
func (f *FakeWhatsApp) SetDevices(devices ...FakeDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devices
}

// SetGroups sets how many groups /user/my/groups returns for a device
func (f *FakeWhatsApp) SetGroups(deviceID string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[deviceID] = count
}

// SetDevicesStatus makes /app/devices answer with status
func (f *FakeWhatsApp) SetDevicesStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devicesStatus = status
}

// SetGroupsStatus makes /user/my/groups answer with status
func (f *FakeWhatsApp) SetGroupsStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupsStatus = status
}

// SetDevicesBody replaces the /app/devices body with raw text
func (f *FakeWhatsApp) SetDevicesBody(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devicesBody = body
}

// SetDelay delays every response until d elapses or the client gives up
func (f *FakeWhatsApp) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// RequireBasicAuth rejects requests without these credentials with 401
func (f *FakeWhatsApp) RequireBasicAuth(user, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = user
	f.password = password
}

// Requests returns how many requests hit path
func (f *FakeWhatsApp) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

// DeviceHeaders returns the X-Device-Id values received by /user/my/groups
func (f *FakeWhatsApp) DeviceHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deviceHeaders...)
}

// admit records the request and applies auth and delay. It returns false when
// the response has already been written.
func (f *FakeWhatsApp) admit(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	f.requests[r.URL.Path]++
	delay := f.delay
	user, password := f.user, f.password
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return false
		}
	}

	if user != "" || password != "" {
		gotUser, gotPassword, ok := r.BasicAuth()
		if !ok || gotUser != user || gotPassword != password {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "UNAUTHORIZED", "message": "invalid credentials"})
			return false
		}
	}
	return true
}

func (f *FakeWhatsApp) handleDevices(w http.ResponseWriter, r *http.Request) {
	if !f.admit(w, r) {
		return
	}

	f.mu.Lock()
	status, body := f.devicesStatus, f.devicesBody
	devices := append([]FakeDevice{}, f.devices...)
	f.mu.Unlock()

	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	writeJSON(w, status, map[string]any{
		"code":    "SUCCESS",
		"message": "Fetch device success",
		"results": devices,
	})
}

func (f *FakeWhatsApp) handleGroups(w http.ResponseWriter, r *http.Request) {
	if !f.admit(w, r) {
		return
	}

	deviceID := r.Header.Get("X-Device-Id")

	f.mu.Lock()
	f.deviceHeaders = append(f.deviceHeaders, deviceID)
	status := f.groupsStatus
	count := f.groups[deviceID]
	f.mu.Unlock()

	groups := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		groups = append(groups, map[string]any{"JID": i, "Name": "group"})
	}

	writeJSON(w, status, map[string]any{
		"code":    "SUCCESS",
		"message": "Success get list groups",
		"results": map[string]any{"data": groups},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
