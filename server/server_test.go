package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0mer/wa-llm-exporter/collector"
	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/health"
	"github.com/t0mer/wa-llm-exporter/metric"
	"github.com/t0mer/wa-llm-exporter/scrape"
	"github.com/t0mer/wa-llm-exporter/store"
	fixtures "github.com/t0mer/wa-llm-exporter/testutil"
	"github.com/t0mer/wa-llm-exporter/whatsapp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubMetrics struct {
	body  []byte
	err   error
	calls int
}

func (s *stubMetrics) Scrape(context.Context) ([]byte, *scrape.Outcome, error) {
	s.calls++
	return s.body, &scrape.Outcome{}, s.err
}

type stubPinger struct {
	err      error
	deadline time.Time
}

func (p *stubPinger) Ping(ctx context.Context) error {
	p.deadline, _ = ctx.Deadline()
	return p.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) health.Status {
	t.Helper()
	var status health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

func TestMetrics(t *testing.T) {
	metrics := &stubMetrics{body: []byte("whatsapp_messages_total 3\n")}
	s := New(DefaultConfig(), metrics, &stubPinger{}, health.NewMonitor(), quietLogger())

	rec := get(t, s.Handler(), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, metric.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, "whatsapp_messages_total 3\n", rec.Body.String())
	assert.Equal(t, 1, metrics.calls)
}

func TestMetrics_RenderFailure(t *testing.T) {
	metrics := &stubMetrics{err: fmt.Errorf("gather failed")}
	s := New(DefaultConfig(), metrics, &stubPinger{}, health.NewMonitor(), quietLogger())

	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetrics_RejectedSamplesStillServe(t *testing.T) {
	registry, err := metric.NewRegistry(metric.WithoutRuntimeMetrics())
	require.NoError(t, err)

	write := func(value float64) func(context.Context, *metric.Sink) error {
		return func(_ context.Context, sink *metric.Sink) error {
			sink.Set(metric.MessagesTotal, value)
			return nil
		}
	}
	scraper, err := scrape.New(registry, []collector.Collector{
		fixtures.NewMockCollector("first", write(1)),
		fixtures.NewMockCollector("second", write(2)),
	}, scrape.WithLogger(quietLogger()))
	require.NoError(t, err)

	s := New(DefaultConfig(), scraper, &stubPinger{}, scraper.Monitor(), quietLogger())
	rec := get(t, s.Handler(), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "whatsapp_messages_total ")
	assert.Contains(t, rec.Body.String(), metric.ScrapeDuration.Name)
}

func TestLiveness(t *testing.T) {
	pinger := &stubPinger{err: fmt.Errorf("down")}
	s := New(DefaultConfig(), &stubMetrics{}, pinger, health.NewMonitor(), quietLogger())

	for _, path := range []string{"/health", "/healthz"} {
		t.Run(path, func(t *testing.T) {
			rec := get(t, s.Handler(), path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
		})
	}
	assert.True(t, pinger.deadline.IsZero(), "liveness must not touch the database")
}

func TestReadiness(t *testing.T) {
	for _, path := range []string{"/ready", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			pinger := &stubPinger{}
			cfg := DefaultConfig()
			cfg.ReadyTimeout = 750 * time.Millisecond
			s := New(cfg, &stubMetrics{}, pinger, health.NewMonitor(), quietLogger())

			before := time.Now()
			rec := get(t, s.Handler(), path)

			assert.Equal(t, http.StatusOK, rec.Code)
			status := decodeStatus(t, rec)
			assert.True(t, status.IsHealthy())
			assert.Equal(t, "database", status.Component)
			assert.WithinDuration(t, before.Add(750*time.Millisecond), pinger.deadline, 500*time.Millisecond)
		})
	}
}

func TestReadiness_Unavailable(t *testing.T) {
	pinger := &stubPinger{err: errors.WrapConnection(
		fmt.Errorf("dial tcp 10.1.2.3:5432: connect: connection refused"), "DB", "Ping", "ping")}
	s := New(DefaultConfig(), &stubMetrics{}, pinger, health.NewMonitor(), quietLogger())

	rec := get(t, s.Handler(), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decodeStatus(t, rec)
	assert.True(t, status.IsUnhealthy())
	assert.True(t, strings.HasPrefix(status.Message, "connection_error: "))
	assert.NotContains(t, rec.Body.String(), "10.1.2.3")
	assert.NotContains(t, rec.Body.String(), "5432")
}

func TestStatus(t *testing.T) {
	monitor := health.NewMonitor()
	monitor.RecordSuccess("messages", time.Second, 12)
	monitor.RecordFailure("connection", time.Second, errors.WrapAuth(errors.ErrUnauthorized, "Client", "get", "GET /app/devices"))

	s := New(DefaultConfig(), &stubMetrics{}, &stubPinger{}, monitor, quietLogger())
	rec := get(t, s.Handler(), "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, DefaultSystemName, status.Component)
	assert.True(t, status.IsDegraded())
	require.Len(t, status.SubStatuses, 2)
	assert.Equal(t, "connection", status.SubStatuses[0].Component)
	assert.Equal(t, "auth_error", status.SubStatuses[0].Metrics.LastErrorType)
	assert.Equal(t, 12, status.SubStatuses[1].Metrics.Samples)
}

func TestCollectorStatus(t *testing.T) {
	monitor := health.NewMonitor()
	monitor.RecordSuccess("messages", time.Second, 12)
	monitor.RecordFailure("database", time.Second, errors.WrapConnection(
		fmt.Errorf("dial tcp 10.1.2.3:5432: connect: connection refused"), "DB", "TestConnection", "select 1"))

	s := New(DefaultConfig(), &stubMetrics{}, &stubPinger{}, monitor, quietLogger())

	rec := get(t, s.Handler(), "/status/database")
	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.Equal(t, "database", status.Component)
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "connection_error", status.Metrics.LastErrorType)
	assert.NotContains(t, rec.Body.String(), "10.1.2.3")

	rec = get(t, s.Handler(), "/status/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error      string   `json:"error"`
		Collectors []string `json:"collectors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, `"nope"`)
	assert.Equal(t, []string{"database", "messages"}, body.Collectors)
}

func TestRoutes(t *testing.T) {
	s := New(DefaultConfig(), &stubMetrics{}, &stubPinger{}, health.NewMonitor(), quietLogger())

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope").Code)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// The readiness answer depends on the database only, whatever the API does
func TestReadiness_IndependentOfAPI(t *testing.T) {
	registry, err := metric.NewRegistry(metric.WithoutRuntimeMetrics())
	require.NoError(t, err)

	raw := fixtures.OpenSQLite(t)
	require.NoError(t, fixtures.CreateSchema(context.Background(), raw))
	db := store.New(raw, store.DialectSQLite, time.Second, registry.State, quietLogger())

	fake := fixtures.NewFakeWhatsApp(t)
	fake.SetDevicesStatus(http.StatusBadGateway)

	apiCfg := whatsapp.DefaultConfig()
	apiCfg.BaseURL = fake.URL()
	api, err := whatsapp.NewClient(apiCfg, registry.State, quietLogger())
	require.NoError(t, err)

	scraper, err := scrape.New(registry, collector.Defaults(db, api, time.Now, quietLogger()), scrape.WithLogger(quietLogger()))
	require.NoError(t, err)

	s := New(DefaultConfig(), scraper, db, scraper.Monitor(), quietLogger())
	h := s.Handler()

	// API down, database up
	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `whatsapp_exporter_scrape_errors_total{collector="connection",error_type="remote_error"} 1`)
	assert.Contains(t, rec.Body.String(), "whatsapp_messages_total 0\n")
	assert.Equal(t, http.StatusOK, get(t, h, "/ready").Code)
	assert.True(t, decodeStatus(t, get(t, h, "/status")).IsDegraded())

	// API up, database down
	fake.SetDevicesStatus(http.StatusOK)
	require.NoError(t, raw.Close())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)
}

func TestStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	s := New(cfg, &stubMetrics{body: []byte("up 1\n")}, &stubPinger{}, health.NewMonitor(), quietLogger())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start must fail")

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Stop(ctx), "stopping twice is a no-op")
}
