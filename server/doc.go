// Package server exposes the exporter over HTTP.
//
// Routes:
//
//	GET /metrics          one fresh scrape, text exposition format, 200 even
//	                      when collectors failed
//	GET /health, /healthz liveness, constant {"status":"ok"}, no I/O
//	GET /ready, /readyz   database ping bounded by ReadyTimeout, 200 or 503
//	GET /status           per-collector health from the most recent scrapes
//	GET /status/{name}    one collector, 404 listing the known collectors
//
// Readiness depends on the database only. An unreachable WhatsApp API shows up
// as a failing connection collector on /metrics and /status instead.
package server
