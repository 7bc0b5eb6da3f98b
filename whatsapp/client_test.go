package whatsapp

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
	fixtures "github.com/t0mer/wa-llm-exporter/testutil"
)

func newTestClient(t *testing.T, fake *fixtures.FakeWhatsApp, mutate ...func(*Config)) (*Client, *metric.State) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = fake.URL()
	cfg.Timeout = 2 * time.Second
	for _, m := range mutate {
		m(&cfg)
	}

	state := metric.NewState()
	client, err := NewClient(cfg, state, nil)
	require.NoError(t, err)
	return client, state
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:3000", "ftp://example.com", "http://"} {
		t.Run(base, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BaseURL = base

			_, err := NewClient(cfg, nil, nil)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestClient_Devices(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.SetDevices(
		fixtures.FakeDevice{Name: "Phone", Device: "972500000000:12@s.whatsapp.net"},
		fixtures.FakeDevice{Name: "Tablet", Device: "972500000000:13@s.whatsapp.net"},
	)
	client, state := newTestClient(t, fake)

	devices, err := client.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Device{
		{Name: "Phone", ID: "972500000000:12@s.whatsapp.net"},
		{Name: "Tablet", ID: "972500000000:13@s.whatsapp.net"},
	}, devices)

	assert.Equal(t, uint64(1), fixtures.ObservationCount(t, state.APILatency, EndpointDevices))
}

func TestClient_DevicesEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"code":"SUCCESS","results":[]}`},
		{"null results", `{"code":"SUCCESS","results":null}`},
		{"missing results", `{"code":"SUCCESS"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fake := fixtures.NewFakeWhatsApp(t)
			fake.SetDevicesBody(test.body)
			client, _ := newTestClient(t, fake)

			devices, err := client.Devices(context.Background())
			require.NoError(t, err)
			assert.Empty(t, devices)
		})
	}
}

func TestClient_DevicesMalformed(t *testing.T) {
	for _, body := range []string{`not json`, `{"results":{"device":"x"}}`} {
		t.Run(body, func(t *testing.T) {
			fake := fixtures.NewFakeWhatsApp(t)
			fake.SetDevicesBody(body)
			client, _ := newTestClient(t, fake)

			_, err := client.Devices(context.Background())
			require.Error(t, err)
			assert.Equal(t, errors.KindRemote, errors.KindOf(err))
			assert.ErrorIs(t, err, errors.ErrMalformedBody)
		})
	}
}

func TestClient_BasicAuth(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.RequireBasicAuth("admin", "secret")
	fake.SetDevices(fixtures.FakeDevice{Name: "Phone", Device: "d1"})

	client, _ := newTestClient(t, fake, func(cfg *Config) {
		cfg.User = "admin"
		cfg.Password = "secret"
	})
	devices, err := client.Devices(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestClient_BasicAuthNeedsBothParts(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.RequireBasicAuth("admin", "secret")

	// A user without a password sends no credentials at all
	client, _ := newTestClient(t, fake, func(cfg *Config) {
		cfg.User = "admin"
	})
	_, err := client.Devices(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindAuth, errors.KindOf(err))
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   errors.Kind
	}{
		{http.StatusUnauthorized, errors.KindAuth},
		{http.StatusForbidden, errors.KindAuth},
		{http.StatusInternalServerError, errors.KindRemote},
		{http.StatusBadGateway, errors.KindRemote},
		{http.StatusNotFound, errors.KindRemote},
	}

	for _, test := range tests {
		t.Run(http.StatusText(test.status), func(t *testing.T) {
			fake := fixtures.NewFakeWhatsApp(t)
			fake.SetDevicesStatus(test.status)
			client, state := newTestClient(t, fake)

			_, err := client.Devices(context.Background())
			require.Error(t, err)
			assert.Equal(t, test.kind, errors.KindOf(err))

			// Latency is recorded for failed calls too
			assert.Equal(t, uint64(1), fixtures.ObservationCount(t, state.APILatency, EndpointDevices))
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.SetDelay(2 * time.Second)
	client, _ := newTestClient(t, fake, func(cfg *Config) {
		cfg.Timeout = 50 * time.Millisecond
	})

	start := time.Now()
	_, err := client.Devices(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := DefaultConfig()
	cfg.BaseURL = "http://" + addr
	client, err := NewClient(cfg, metric.NewState(), nil)
	require.NoError(t, err)

	_, err = client.Devices(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindConnection, errors.KindOf(err))
}

func TestClient_Groups(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.SetGroups("d1", 4)
	client, state := newTestClient(t, fake)

	count, err := client.Groups(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, []string{"d1"}, fake.DeviceHeaders())
	assert.Equal(t, uint64(1), fixtures.ObservationCount(t, state.APILatency, EndpointGroups))
}

func TestClient_GroupsFailure(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.SetGroupsStatus(http.StatusServiceUnavailable)
	client, _ := newTestClient(t, fake)

	_, err := client.Groups(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, errors.KindRemote, errors.KindOf(err))
	assert.ErrorIs(t, err, errors.ErrUnexpectedStatus)
}

func TestClient_BaseURLWithTrailingSlash(t *testing.T) {
	fake := fixtures.NewFakeWhatsApp(t)
	fake.SetDevices(fixtures.FakeDevice{Name: "Phone", Device: "d1"})
	client, _ := newTestClient(t, fake, func(cfg *Config) {
		cfg.BaseURL = fake.URL() + "/"
	})

	_, err := client.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Requests(EndpointDevices))
}
