// Package testutil provides fixtures shared by the exporter's package tests.
//
// # Overview
//
// Database fixtures:
//
//   - OpenSQLite: a file-backed SQLite database in the test's temp directory,
//     closed on cleanup
//   - CreateSchema: the message, sender, group, reaction, optout and kbtopic
//     tables, or any subset of them
//   - Seed: inserts a Fixture using the dialect's placeholders and time
//     encoding, so the same fixture seeds SQLite and Postgres
//
// Mock implementations:
//
// MockCollector - collector with injectable behaviour:
//   - Thread-safe call counting
//   - CollectFunc receives the collector's Sink
//
// FakeWhatsApp - httptest server speaking the WhatsApp API subset the
// exporter uses (/app/devices and /user/my/groups):
//   - Configurable devices, groups, status codes and delays
//   - Records the basic auth credentials and device headers it received
//
// # Example Usage
//
//	db := testutil.OpenSQLite(t)
//	require.NoError(t, testutil.CreateSchema(ctx, db))
//	require.NoError(t, testutil.Seed(ctx, db, dialect, testutil.Fixture{
//	    Senders:  []testutil.Sender{{JID: "a@s.whatsapp.net", PushName: "Alice"}},
//	    Messages: []testutil.Message{{ID: "m1", SenderJID: "a@s.whatsapp.net", Timestamp: now}},
//	}))
package testutil
