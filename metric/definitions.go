package metric

import (
	"fmt"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/t0mer/wa-llm-exporter/errors"
)

// Kind is the exposition type of a metric definition
type Kind int

const (
	// KindGauge is a point-in-time value
	KindGauge Kind = iota
	// KindCounter is a monotonically increasing value
	KindCounter
	// KindHistogram is a bucketed distribution of observations
	KindHistogram
	// KindInfo is a constant 1 gauge whose labels carry the information
	KindInfo
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCounter:
		return "counter"
	case KindHistogram:
		return "histogram"
	case KindInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Definition describes one exported metric. Name and Labels never change once
// a definition is part of a DefinitionSet.
type Definition struct {
	Name    string
	Kind    Kind
	Help    string
	Labels  []string
	Buckets []float64 // histograms only

	// Stateful gauges live in State and accumulate across scrapes
	Stateful bool

	descOnce sync.Once
	desc     *prometheus.Desc
}

// Desc returns the Prometheus descriptor of the definition
func (d *Definition) Desc() *prometheus.Desc {
	d.descOnce.Do(func() {
		d.desc = prometheus.NewDesc(d.Name, d.Help, d.Labels, nil)
	})
	return d.desc
}

// sampled reports whether collectors emit this definition as per-scrape samples
func (d *Definition) sampled() bool {
	return (d.Kind == KindGauge || d.Kind == KindInfo) && !d.Stateful
}

func (d *Definition) sameShape(other *Definition) bool {
	return d.Kind == other.Kind && slices.Equal(d.Labels, other.Labels)
}

// Scrape self-observability
var (
	ScrapeErrors = &Definition{
		Name:   "whatsapp_exporter_scrape_errors_total",
		Kind:   KindCounter,
		Help:   "Total number of scrape errors",
		Labels: []string{"collector", "error_type"},
	}
	ScrapeDuration = &Definition{
		Name:    "whatsapp_exporter_scrape_duration_seconds",
		Kind:    KindHistogram,
		Help:    "Duration of metrics collection in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	}
	LastScrapeTimestamp = &Definition{
		Name:     "whatsapp_exporter_last_scrape_timestamp",
		Kind:     KindGauge,
		Help:     "Timestamp of last successful metrics scrape",
		Stateful: true,
	}
)

// Remote call latency
var (
	APILatency = &Definition{
		Name:    "whatsapp_api_latency_seconds",
		Kind:    KindHistogram,
		Help:    "WhatsApp API response latency in seconds",
		Labels:  []string{"endpoint"},
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}
	DBQueryLatency = &Definition{
		Name:    "whatsapp_db_query_latency_seconds",
		Kind:    KindHistogram,
		Help:    "Database query latency in seconds",
		Labels:  []string{"query_type"},
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}
)

// WhatsApp device and connection
var (
	DevicesTotal = &Definition{
		Name: "whatsapp_devices_total",
		Kind: KindGauge,
		Help: "Total number of WhatsApp devices connected",
	}
	ConnectionStatus = &Definition{
		Name: "whatsapp_connection_status",
		Kind: KindGauge,
		Help: "WhatsApp connection status (1=connected, 0=disconnected)",
	}
	DeviceInfo = &Definition{
		Name:   "whatsapp_device_info",
		Kind:   KindInfo,
		Help:   "WhatsApp device information",
		Labels: []string{"device", "name"},
	}
	APIGroupsTotal = &Definition{
		Name: "whatsapp_api_groups_total",
		Kind: KindGauge,
		Help: "Number of groups visible to the first connected device through the WhatsApp API",
	}
)

// Messages
var (
	MessagesTotal = &Definition{
		Name: "whatsapp_messages_total",
		Kind: KindGauge,
		Help: "Total number of messages in database",
	}
	MessagesByType = &Definition{
		Name:   "whatsapp_messages_by_type",
		Kind:   KindGauge,
		Help:   "Number of messages by type",
		Labels: []string{"message_type"},
	}
	MessagesToday = &Definition{
		Name: "whatsapp_messages_today",
		Kind: KindGauge,
		Help: "Number of messages received today",
	}
	MessagesLast24h = &Definition{
		Name: "whatsapp_messages_last_24h",
		Kind: KindGauge,
		Help: "Number of messages in the last 24 hours",
	}
	MessagesLastHour = &Definition{
		Name: "whatsapp_messages_last_hour",
		Kind: KindGauge,
		Help: "Number of messages in the last hour",
	}
	MessagesPerGroup = &Definition{
		Name:   "whatsapp_messages_per_group",
		Kind:   KindGauge,
		Help:   "Number of messages per group (top 10)",
		Labels: []string{"group_jid", "group_name"},
	}
	MessagesDirectTotal = &Definition{
		Name: "whatsapp_messages_direct_total",
		Kind: KindGauge,
		Help: "Total number of direct/private messages",
	}
	MessagesGroupTotal = &Definition{
		Name: "whatsapp_messages_group_total",
		Kind: KindGauge,
		Help: "Total number of group messages",
	}
	MessagesWithMedia = &Definition{
		Name: "whatsapp_messages_with_media_total",
		Kind: KindGauge,
		Help: "Total messages containing media",
	}
	MessagesPerSender = &Definition{
		Name:   "whatsapp_messages_per_sender",
		Kind:   KindGauge,
		Help:   "Number of messages per sender (top 10)",
		Labels: []string{"sender_jid", "sender_name"},
	}
)

// Groups
var (
	GroupsTotal = &Definition{
		Name: "whatsapp_groups_total",
		Kind: KindGauge,
		Help: "Total number of WhatsApp groups",
	}
	GroupsManaged = &Definition{
		Name: "whatsapp_groups_managed",
		Kind: KindGauge,
		Help: "Number of managed groups",
	}
	GroupsWithSpamNotification = &Definition{
		Name: "whatsapp_groups_with_spam_notification",
		Kind: KindGauge,
		Help: "Number of groups with spam notification enabled",
	}
	GroupsWithCommunity = &Definition{
		Name: "whatsapp_groups_with_community",
		Kind: KindGauge,
		Help: "Number of groups with community keys",
	}
)

// Senders
var (
	SendersTotal = &Definition{
		Name: "whatsapp_senders_total",
		Kind: KindGauge,
		Help: "Total number of unique senders/contacts",
	}
	SendersActive24h = &Definition{
		Name: "whatsapp_senders_active_24h",
		Kind: KindGauge,
		Help: "Number of active senders in last 24 hours",
	}
)

// Reactions, opt-outs and knowledge base
var (
	ReactionsTotal = &Definition{
		Name: "whatsapp_reactions_total",
		Kind: KindGauge,
		Help: "Total number of message reactions",
	}
	OptoutsTotal = &Definition{
		Name: "whatsapp_optouts_total",
		Kind: KindGauge,
		Help: "Total number of opt-outs",
	}
	KBTopicsTotal = &Definition{
		Name: "whatsapp_kb_topics_total",
		Kind: KindGauge,
		Help: "Total number of knowledge base topics",
	}
)

// Database performance
var (
	DBConnectionStatus = &Definition{
		Name: "whatsapp_db_connection_status",
		Kind: KindGauge,
		Help: "Database connection status (1=connected, 0=disconnected)",
	}
	DBTableRows = &Definition{
		Name:   "whatsapp_db_table_rows",
		Kind:   KindGauge,
		Help:   "Approximate row count per table",
		Labels: []string{"table_name"},
	}
)

// Definitions returns every metric the exporter can emit, in declaration order
func Definitions() []*Definition {
	return []*Definition{
		ScrapeErrors, ScrapeDuration, LastScrapeTimestamp,
		APILatency, DBQueryLatency,
		DevicesTotal, ConnectionStatus, DeviceInfo, APIGroupsTotal,
		MessagesTotal, MessagesByType, MessagesToday, MessagesLast24h, MessagesLastHour,
		MessagesPerGroup, MessagesDirectTotal, MessagesGroupTotal, MessagesWithMedia, MessagesPerSender,
		GroupsTotal, GroupsManaged, GroupsWithSpamNotification, GroupsWithCommunity,
		SendersTotal, SendersActive24h,
		ReactionsTotal, OptoutsTotal, KBTopicsTotal,
		DBConnectionStatus, DBTableRows,
	}
}

// DefinitionSet is a validated, immutable collection of definitions
type DefinitionSet struct {
	byName map[string]*Definition
	order  []*Definition
}

// NewDefinitionSet validates defs. Declaring one name twice with a different
// kind or label set is a registry conflict.
func NewDefinitionSet(defs ...*Definition) (*DefinitionSet, error) {
	set := &DefinitionSet{
		byName: make(map[string]*Definition, len(defs)),
		order:  make([]*Definition, 0, len(defs)),
	}

	for _, def := range defs {
		if def == nil || def.Name == "" {
			return nil, errors.WrapFatal(errors.ErrRegistryConflict,
				"DefinitionSet", "NewDefinitionSet", "validate unnamed definition")
		}

		if existing, ok := set.byName[def.Name]; ok {
			if existing.sameShape(def) {
				continue
			}
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: %s declared as %s%v and %s%v", errors.ErrRegistryConflict,
					def.Name, existing.Kind, existing.Labels, def.Kind, def.Labels),
				"DefinitionSet", "NewDefinitionSet", "validate definitions")
		}

		set.byName[def.Name] = def
		set.order = append(set.order, def)
	}

	return set, nil
}

// Lookup returns the definition with the given name
func (s *DefinitionSet) Lookup(name string) (*Definition, bool) {
	def, ok := s.byName[name]
	return def, ok
}

// Contains reports whether def is the definition registered under its name
func (s *DefinitionSet) Contains(def *Definition) bool {
	if def == nil {
		return false
	}
	registered, ok := s.byName[def.Name]
	return ok && registered == def
}

// Sampled returns the definitions collectors may emit per scrape
func (s *DefinitionSet) Sampled() []*Definition {
	sampled := make([]*Definition, 0, len(s.order))
	for _, def := range s.order {
		if def.sampled() {
			sampled = append(sampled, def)
		}
	}
	return sampled
}
