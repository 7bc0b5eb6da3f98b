// Package metric declares every metric the exporter can expose and turns one
// scrape's samples into Prometheus exposition text.
//
// # Architecture
//
// Metrics fall into two groups:
//
//  1. State: counters and histograms that accumulate for the life of the
//     process (scrape errors, scrape duration, API and query latency) plus the
//     last successful scrape timestamp. They are registered once on the
//     Registry's Prometheus registry.
//  2. Samples: gauges and info metrics that collectors rebuild on every scrape.
//     A collector writes them into its own Sink, and the Registry merges them
//     with State for exactly one Gather. Nothing from a previous scrape can
//     leak into the next one.
//
// Every metric is declared as a Definition. NewDefinitionSet rejects a name
// declared twice with a different kind or label set, and a Sink rejects any
// sample whose Definition is not part of the set:
//
//	registry, err := metric.NewRegistry()
//	if err != nil {
//	    return err // registry conflict, stop the process
//	}
//
//	sink := metric.NewSink(registry.Definitions())
//	sink.Set(metric.MessagesTotal, 1234)
//	sink.Set(metric.MessagesByType, 900, "group")
//	sink.Info(metric.DeviceInfo, "device-1", "Phone")
//
//	families, err := registry.Gather(sink.Metrics())
//	body, err := metric.Render(families)
//
// # Exposition
//
// Render writes the text exposition format (version 0.0.4). Families are
// sorted by name and samples by label values, so two scrapes against an
// unchanged source render identically apart from the State metrics.
//
// # Thread Safety
//
// Registry and State are safe for concurrent use. A Sink belongs to one
// collector for one scrape and is not.
package metric
