package collector

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/t0mer/wa-llm-exporter/metric"
	"github.com/t0mer/wa-llm-exporter/whatsapp"
)

// Collector names, used as the collector label of the scrape error counter
const (
	NameConnection     = "connection"
	NameMessages       = "messages"
	NameMessageGroups  = "message_groups"
	NameMessageSenders = "message_senders"
	NameGroups         = "groups"
	NameSenders        = "senders"
	NameMisc           = "misc"
	NameDatabase       = "database"
)

// TopN is how many groups and senders the per-entity breakdowns report
const TopN = 10

// maxNameLength bounds display names used as label values, in runes
const maxNameLength = 50

// Collector produces one group of samples per scrape. Collect writes only to
// sink; a returned error discards everything it wrote.
type Collector interface {
	Name() string
	Collect(ctx context.Context, sink *metric.Sink) error
}

// FailureCollector is a Collector that still reports something when its
// Collect fails. CollectFailure runs on a fresh Sink after the failure and
// must not do I/O.
type FailureCollector interface {
	Collector
	CollectFailure(sink *metric.Sink)
}

// Querier runs read-only statements. *store.DB implements it.
type Querier interface {
	Count(ctx context.Context, queryType, query string, args ...any) (int64, error)
	Query(ctx context.Context, queryType, query string, scan func(*sql.Rows) error, args ...any) error
	Since(t time.Time) any
}

// Database is a Querier that can also test its connection
type Database interface {
	Querier
	TestConnection(ctx context.Context) error
}

// DeviceAPI is the subset of the WhatsApp API the connection collector calls.
// *whatsapp.Client implements it.
type DeviceAPI interface {
	Devices(ctx context.Context) ([]whatsapp.Device, error)
	Groups(ctx context.Context, deviceID string) (int, error)
}

// Clock returns the current time. Day boundaries are taken in its location.
type Clock func() time.Time

// Defaults returns every collector in exposition order
func Defaults(db Database, api DeviceAPI, clock Clock, logger *slog.Logger) []Collector {
	return []Collector{
		NewConnectionCollector(api, logger),
		NewMessagesCollector(db, clock),
		NewMessageGroupsCollector(db),
		NewMessageSendersCollector(db),
		NewGroupsCollector(db),
		NewSendersCollector(db, clock),
		NewMiscCollector(db, logger),
		NewDatabaseCollector(db, logger),
	}
}

// count is one scalar statement and the gauge it feeds
type count struct {
	def       *metric.Definition
	queryType string
	query     string
	args      []any
}

// displayName makes a label value from a possibly missing name: empty names
// fall back to the entity's identifier, invalid UTF-8 is replaced and the
// result is cut to maxNameLength runes.
func displayName(name sql.NullString, fallback string) string {
	value := name.String
	if !name.Valid || strings.TrimSpace(value) == "" {
		value = fallback
	}
	value = strings.ToValidUTF8(value, "�")
	if utf8.RuneCountInString(value) > maxNameLength {
		value = string([]rune(value)[:maxNameLength])
	}
	return value
}

// identifier makes a label value from a JID
func identifier(jid string) string {
	return strings.ToValidUTF8(jid, "�")
}

func withDefaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
