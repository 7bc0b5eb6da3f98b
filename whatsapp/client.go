package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

// Endpoints called by the exporter. They double as the endpoint label of
// whatsapp_api_latency_seconds.
const (
	EndpointDevices = "/app/devices"
	EndpointGroups  = "/user/my/groups"
)

// maxBodySize bounds how much of a response is read
const maxBodySize = 8 << 20

// API defaults
const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 10 * time.Second
)

// Config holds the WhatsApp API connection settings
type Config struct {
	BaseURL  string
	User     string
	Password string
	Timeout  time.Duration
}

// DefaultConfig returns the API defaults
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// Device is one connected WhatsApp device
type Device struct {
	Name string
	ID   string
}

// Client calls the WhatsApp API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	user       string
	password   string
	timeout    time.Duration
	httpClient *http.Client
	state      *metric.State
	logger     *slog.Logger
}

// NewClient creates a client for cfg.BaseURL. Basic auth is sent only when
// both user and password are set.
func NewClient(cfg Config, state *metric.State, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "NewClient", "parse base URL")
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("base URL %q must be an absolute http(s) URL", cfg.BaseURL),
			"Client", "NewClient", "parse base URL")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(base.String(), "/"),
		user:       cfg.User,
		password:   cfg.Password,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		state:      state,
		logger:     logger.With("component", "whatsapp"),
	}, nil
}

// Devices lists the connected devices
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	body, err := c.get(ctx, "Devices", EndpointDevices, nil)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.WrapRemote(errors.ErrMalformedBody, "Client", "Devices", "parse "+EndpointDevices)
	}

	results := gjson.GetBytes(body, "results")
	if !results.Exists() || results.Type == gjson.Null {
		return []Device{}, nil
	}
	if !results.IsArray() {
		return nil, errors.WrapRemote(
			fmt.Errorf("%w: results is not a list", errors.ErrMalformedBody),
			"Client", "Devices", "parse "+EndpointDevices)
	}

	items := results.Array()
	devices := make([]Device, 0, len(items))
	for _, item := range items {
		devices = append(devices, Device{
			Name: item.Get("name").String(),
			ID:   item.Get("device").String(),
		})
	}
	return devices, nil
}

// Groups counts the groups visible to a device
func (c *Client) Groups(ctx context.Context, deviceID string) (int, error) {
	header := http.Header{}
	header.Set("X-Device-Id", deviceID)

	body, err := c.get(ctx, "Groups", EndpointGroups, header)
	if err != nil {
		return 0, err
	}

	if !gjson.ValidBytes(body) {
		return 0, errors.WrapRemote(errors.ErrMalformedBody, "Client", "Groups", "parse "+EndpointGroups)
	}

	data := gjson.GetBytes(body, "results.data")
	switch {
	case data.Type == gjson.Null && data.Exists():
		return 0, nil
	case !data.IsArray():
		return 0, errors.WrapRemote(
			fmt.Errorf("%w: results.data is not a list", errors.ErrMalformedBody),
			"Client", "Groups", "parse "+EndpointGroups)
	}
	return len(data.Array()), nil
}

// get performs one GET bounded by the client timeout. Latency is recorded
// whatever the outcome.
func (c *Client) get(ctx context.Context, method, endpoint string, header http.Header) ([]byte, error) {
	action := "GET " + endpoint

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, errors.WrapRemote(err, "Client", method, action)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	body, status, err := c.do(req)
	c.state.RecordAPILatency(endpoint, time.Since(start))

	if err != nil {
		c.logger.Debug("Request failed", "endpoint", endpoint, "error", err)
		return nil, errors.WrapClassified(err, "Client", method, action)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, errors.WrapAuth(
			fmt.Errorf("%w: status %d", errors.ErrUnauthorized, status), "Client", method, action)
	case status < 200 || status > 299:
		return nil, errors.WrapRemote(
			fmt.Errorf("%w: %d", errors.ErrUnexpectedStatus, status), "Client", method, action)
	}

	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
