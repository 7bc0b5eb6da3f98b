package collector

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
)

// ConnectionCollector reports the devices connected to the WhatsApp API
type ConnectionCollector struct {
	api    DeviceAPI
	logger *slog.Logger
}

// NewConnectionCollector creates a connection collector
func NewConnectionCollector(api DeviceAPI, logger *slog.Logger) *ConnectionCollector {
	return &ConnectionCollector{
		api:    api,
		logger: withDefaultLogger(logger).With("collector", NameConnection),
	}
}

// Name implements Collector
func (c *ConnectionCollector) Name() string {
	return NameConnection
}

// Collect lists the devices. For the first device it also counts the groups
// visible through the API; that call failing only drops its own gauge.
func (c *ConnectionCollector) Collect(ctx context.Context, sink *metric.Sink) error {
	devices, err := c.api.Devices(ctx)
	if err != nil {
		return errors.Wrap(err, "ConnectionCollector", "Collect", "list devices")
	}

	sink.Set(metric.DevicesTotal, float64(len(devices)))

	status := 0.0
	if len(devices) > 0 {
		status = 1
	}
	sink.Set(metric.ConnectionStatus, status)

	seen := make(map[string]bool, len(devices))
	for _, device := range devices {
		if seen[device.ID] {
			continue
		}
		seen[device.ID] = true

		name := sql.NullString{String: device.Name, Valid: true}
		sink.Info(metric.DeviceInfo, identifier(device.ID), displayName(name, device.ID))
	}

	if len(devices) == 0 || devices[0].ID == "" {
		return nil
	}

	groups, err := c.api.Groups(ctx, devices[0].ID)
	if err != nil {
		c.logger.Warn("Failed to count groups through the WhatsApp API",
			"device", devices[0].ID,
			"error_type", errors.KindOf(err).String(),
			"error", err)
		return nil
	}
	sink.Set(metric.APIGroupsTotal, float64(groups))

	return nil
}
