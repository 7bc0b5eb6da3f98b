// Package whatsapp is a minimal client for the WhatsApp HTTP API the bot runs
// against. Only the read endpoints the exporter needs are implemented:
// /app/devices and /user/my/groups.
//
// Every call is bounded by the client timeout and its latency is recorded in
// whatsapp_api_latency_seconds{endpoint} whether it succeeds or not. Failures
// are classified: deadline and network timeouts as timeout, dial failures as
// connection_error, 401 and 403 as auth_error and any other non-2xx status or
// unparsable body as remote_error.
package whatsapp
