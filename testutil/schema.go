package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Table names in creation order
const (
	TableMessage  = "message"
	TableSender   = "sender"
	TableGroup    = "group"
	TableReaction = "reaction"
	TableOptout   = "optout"
	TableKBTopic  = "kbtopic"
)

// AllTables lists every table of the bot's schema
var AllTables = []string{TableSender, TableGroup, TableMessage, TableReaction, TableOptout, TableKBTopic}

// schema is portable between SQLite and Postgres. Timestamps are declared
// TIMESTAMP so Postgres compares them natively; SQLite stores them as text.
var schema = map[string]string{
	TableSender: `CREATE TABLE sender (
		jid TEXT PRIMARY KEY,
		push_name TEXT
	)`,
	TableGroup: `CREATE TABLE "group" (
		group_jid TEXT PRIMARY KEY,
		group_name TEXT,
		group_topic TEXT,
		owner_jid TEXT,
		managed BOOLEAN NOT NULL DEFAULT FALSE,
		community_keys TEXT,
		notify_on_spam BOOLEAN NOT NULL DEFAULT FALSE,
		last_ingest TIMESTAMP,
		last_summary_sync TIMESTAMP
	)`,
	TableMessage: `CREATE TABLE message (
		message_id TEXT PRIMARY KEY,
		chat_jid TEXT NOT NULL,
		sender_jid TEXT NOT NULL,
		text TEXT,
		media_url TEXT,
		timestamp TIMESTAMP NOT NULL,
		group_jid TEXT,
		reply_to_id TEXT
	)`,
	TableReaction: `CREATE TABLE reaction (
		message_id TEXT NOT NULL,
		sender_jid TEXT NOT NULL,
		emoji TEXT NOT NULL,
		PRIMARY KEY (message_id, sender_jid)
	)`,
	TableOptout: `CREATE TABLE optout (
		jid TEXT PRIMARY KEY,
		opt_out_type TEXT NOT NULL DEFAULT 'mention'
	)`,
	TableKBTopic: `CREATE TABLE kbtopic (
		id TEXT PRIMARY KEY,
		group_jid TEXT,
		subject TEXT,
		summary TEXT
	)`,
}

// Dialect adapts fixture statements to the database under test
type Dialect interface {
	Rebind(query string) string
	Since(t time.Time) any
}

// Sender is a row of the sender table. An empty PushName is stored as NULL.
type Sender struct {
	JID      string
	PushName string
}

// Group is a row of the group table. Empty strings are stored as NULL.
type Group struct {
	JID           string
	Name          string
	Managed       bool
	NotifyOnSpam  bool
	CommunityKeys string
}

// Message is a row of the message table. An empty GroupJID marks a direct
// message and an empty MediaURL a text-only one.
type Message struct {
	ID        string
	SenderJID string
	GroupJID  string
	MediaURL  string
	Timestamp time.Time
}

// Reaction is a row of the reaction table
type Reaction struct {
	MessageID string
	SenderJID string
	Emoji     string
}

// Fixture is a set of rows to seed
type Fixture struct {
	Senders   []Sender
	Groups    []Group
	Messages  []Message
	Reactions []Reaction
	Optouts   []string
	KBTopics  []string
}

// OpenSQLite opens a file-backed SQLite database that lives for the test
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "whatsapp.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateSchema creates the given tables, or all of them when none are named
func CreateSchema(ctx context.Context, db *sql.DB, tables ...string) error {
	if len(tables) == 0 {
		tables = AllTables
	}
	for _, table := range tables {
		ddl, ok := schema[table]
		if !ok {
			return fmt.Errorf("unknown table %q", table)
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	return nil
}

// Seed inserts every row of f
func Seed(ctx context.Context, db *sql.DB, d Dialect, f Fixture) error {
	exec := func(query string, args ...any) error {
		if _, err := db.ExecContext(ctx, d.Rebind(query), args...); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		return nil
	}

	for _, s := range f.Senders {
		if err := exec(`INSERT INTO sender (jid, push_name) VALUES (?, ?)`, s.JID, nullable(s.PushName)); err != nil {
			return err
		}
	}

	for _, g := range f.Groups {
		err := exec(`INSERT INTO "group" (group_jid, group_name, managed, notify_on_spam, community_keys)
			VALUES (?, ?, ?, ?, ?)`,
			g.JID, nullable(g.Name), g.Managed, g.NotifyOnSpam, nullable(g.CommunityKeys))
		if err != nil {
			return err
		}
	}

	for _, m := range f.Messages {
		chat := m.GroupJID
		if chat == "" {
			chat = m.SenderJID
		}
		err := exec(`INSERT INTO message (message_id, chat_jid, sender_jid, media_url, timestamp, group_jid)
			VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, chat, m.SenderJID, nullable(m.MediaURL), d.Since(m.Timestamp), nullable(m.GroupJID))
		if err != nil {
			return err
		}
	}

	for _, r := range f.Reactions {
		if err := exec(`INSERT INTO reaction (message_id, sender_jid, emoji) VALUES (?, ?, ?)`,
			r.MessageID, r.SenderJID, r.Emoji); err != nil {
			return err
		}
	}

	for _, jid := range f.Optouts {
		if err := exec(`INSERT INTO optout (jid) VALUES (?)`, jid); err != nil {
			return err
		}
	}

	for _, id := range f.KBTopics {
		if err := exec(`INSERT INTO kbtopic (id) VALUES (?)`, id); err != nil {
			return err
		}
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
