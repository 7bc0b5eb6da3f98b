// Package scrape orchestrates one scrape of the exporter: every collector runs
// concurrently under its own deadline, failures are isolated, and what
// succeeded is rendered in the Prometheus text format.
//
// A scrape never fails as a whole. A collector that returns an error, panics,
// writes an undeclared sample or overruns its deadline is:
//
//   - counted in whatsapp_exporter_scrape_errors_total{collector,error_type}
//   - logged at WARN with the scrape_id of the scrape
//   - recorded as unhealthy in the health.Monitor
//   - left out of the output, none of its samples are rendered unless it
//     is a collector.FailureCollector, whose CollectFailure samples are
//     rendered instead
//
// The last-scrape timestamp advances only when at least one collector
// succeeded.
//
// # Usage
//
//	scraper, err := scrape.New(registry, collector.Defaults(db, api, time.Now, logger),
//	    scrape.WithCollectorTimeout(20*time.Second),
//	    scrape.WithTracer(provider.Tracer()),
//	    scrape.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	body, outcome, err := scraper.Scrape(r.Context())
//
// Values are recomputed on every scrape and never cached; two scrapes over
// unchanged data render the same gauges.
package scrape
