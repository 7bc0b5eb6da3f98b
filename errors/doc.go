// Package errors provides the error taxonomy shared by the exporter's remote
// clients, collectors and scrape orchestrator.
//
// # Overview
//
// Every failure that reaches the orchestrator boundary is reduced to a Kind:
//
//   - KindTimeout: the call exceeded its deadline or was abandoned
//   - KindConnection: the database or API could not be reached
//   - KindAuth: credentials were rejected
//   - KindRemote: the source answered with a non-success status or the query failed
//   - KindRegistryConflict: a metric was declared twice with different labels
//
// The Kind's String form is the error_type label of
// whatsapp_exporter_scrape_errors_total. Each Kind also maps onto one of the
// three handling classes (transient, invalid, fatal). Only a registry
// conflict is fatal, and it can only happen while the process starts.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Classification-aware wrappers attach a Kind while preserving the chain:
//
//	errors.WrapTimeout(err, "Client", "Devices", "GET /app/devices")
//	errors.WrapAuth(err, "Client", "Devices", "GET /app/devices")
//	errors.WrapClassified(err, "DB", "Count", "messages_total") // Kind derived from err
//
// KindOf recovers the Kind from any chain. Explicitly classified errors win;
// otherwise context, network and driver errors are recognised, and anything
// else is treated as a remote error:
//
//	if errors.KindOf(err) == errors.KindTimeout {
//	    // the source was slow, not broken
//	}
//
// # Integration with errors.As/Is
//
// ClassifiedError supports standard library inspection:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    slog.Warn("collector failed", "component", ce.Component, "error_type", ce.Kind)
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and ClassifiedError is safe to share after creation.
package errors
