package metric

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0mer/wa-llm-exporter/errors"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	set, err := NewDefinitionSet(Definitions()...)
	require.NoError(t, err)
	return NewSink(set)
}

func TestSink_Set(t *testing.T) {
	sink := newTestSink(t)

	sink.Set(DevicesTotal, 2)
	sink.Set(MessagesPerGroup, 10, "123@g.us", "Family")
	sink.Info(DeviceInfo, "device-1", "Phone")

	require.NoError(t, sink.Err())
	assert.Equal(t, 3, sink.Len())
	assert.Len(t, sink.Metrics(), 3)
}

func TestSink_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		record func(*Sink)
	}{
		{"undeclared definition", func(s *Sink) {
			s.Set(&Definition{Name: "whatsapp_rogue", Kind: KindGauge, Help: "rogue"}, 1)
		}},
		{"copy of a declared definition", func(s *Sink) {
			s.Set(&Definition{Name: MessagesTotal.Name, Kind: KindGauge, Help: MessagesTotal.Help}, 1)
		}},
		{"nil definition", func(s *Sink) { s.Set(nil, 1) }},
		{"counter definition", func(s *Sink) { s.Set(ScrapeErrors, 1, "messages", "timeout") }},
		{"stateful gauge", func(s *Sink) { s.Set(LastScrapeTimestamp, 1) }},
		{"info recorded as gauge", func(s *Sink) { s.Set(DeviceInfo, 1, "device-1", "Phone") }},
		{"gauge recorded as info", func(s *Sink) { s.Info(MessagesTotal) }},
		{"missing label value", func(s *Sink) { s.Set(MessagesByType, 1) }},
		{"extra label value", func(s *Sink) { s.Set(MessagesTotal, 1, "direct") }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sink := newTestSink(t)
			test.record(sink)

			err := sink.Err()
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			assert.ErrorIs(t, err, errors.ErrRegistryConflict)
			assert.Zero(t, sink.Len())
		})
	}
}

func TestSink_StopsAfterFirstError(t *testing.T) {
	sink := newTestSink(t)

	sink.Set(MessagesTotal, 1)
	sink.Set(MessagesByType, 1)
	sink.Set(GroupsTotal, 1)

	require.Error(t, sink.Err())
	assert.True(t, strings.Contains(sink.Err().Error(), MessagesByType.Name))
	assert.Equal(t, 1, sink.Len())
}
