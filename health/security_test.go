package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/t0mer/wa-llm-exporter/errors"
)

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Unix file path",
			input:    "open /var/lib/wa/bot.db: permission denied",
			expected: "open [PATH]: permission denied",
		},
		{
			name:     "Windows file path",
			input:    "cannot read C:\\data\\bot.db",
			expected: "cannot read [PATH]",
		},
		{
			name:     "Postgres DSN with driver suffix",
			input:    "dial postgresql+asyncpg://bot:secret@db:5432/whatsapp failed",
			expected: "dial [URL] failed",
		},
		{
			name:     "HTTP client error",
			input:    `Get "http://wa:3000/app/devices": dial tcp 10.0.0.5:3000: connect: connection refused`,
			expected: `Get "[URL]": dial tcp [IP][PORT]: connect: connection refused`,
		},
		{
			name:     "Credentials in error",
			input:    "auth failed with password=hunter2",
			expected: "auth failed with [REDACTED]",
		},
		{
			name:     "Key value DSN",
			input:    "user=bot password=hunter2",
			expected: "[REDACTED] [REDACTED]",
		},
		{
			name:     "Nothing sensitive",
			input:    "context deadline exceeded",
			expected: "context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeErrorMessage(tt.input))
		})
	}
}

func TestFromError_Sanitizes(t *testing.T) {
	err := errors.WrapConnection(
		fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused"),
		"DB", "Ping", "ping")

	status := FromError("database", err)

	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "database", status.Component)
	assert.Equal(t, "connection_error: DB.Ping: ping failed: dial tcp [IP][PORT]: connect: connection refused", status.Message)
	assert.NotContains(t, status.Message, "127.0.0.1")
}

func TestWithSubStatus_SliceIsolation(t *testing.T) {
	original := Status{
		Component: "wa-exporter",
		Status:    StateHealthy,
		SubStatuses: []Status{
			{Component: "messages", Status: StateHealthy},
		},
	}

	modified := original.WithSubStatus(Status{
		Component: "connection",
		Status:    StateUnhealthy,
	})

	assert.Len(t, original.SubStatuses, 1)
	assert.Len(t, modified.SubStatuses, 2)
	assert.Equal(t, "connection", modified.SubStatuses[1].Component)

	original.SubStatuses[0].Status = StateDegraded
	assert.Equal(t, StateHealthy, modified.SubStatuses[0].Status, "modified should not share the original array")
}
