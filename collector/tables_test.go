package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/metric"
	fixtures "github.com/t0mer/wa-llm-exporter/testutil"
)

func TestGroupsCollector(t *testing.T) {
	db, raw := newSQLite(t)
	require.NoError(t, fixtures.Seed(context.Background(), raw, db, conversation()))

	fams, err := families(t, NewGroupsCollector(db))
	require.NoError(t, err)

	assert.InDelta(t, 3.0, value(t, fams, metric.GroupsTotal, nil), 0.0001)
	assert.InDelta(t, 2.0, value(t, fams, metric.GroupsManaged, nil), 0.0001)
	assert.InDelta(t, 1.0, value(t, fams, metric.GroupsWithSpamNotification, nil), 0.0001)
	assert.InDelta(t, 1.0, value(t, fams, metric.GroupsWithCommunity, nil), 0.0001)
}

func TestGroupsCollector_Empty(t *testing.T) {
	db, _ := newSQLite(t)

	fams, err := families(t, NewGroupsCollector(db))
	require.NoError(t, err)

	for _, def := range []*metric.Definition{
		metric.GroupsTotal, metric.GroupsManaged, metric.GroupsWithSpamNotification, metric.GroupsWithCommunity,
	} {
		assert.InDelta(t, 0.0, value(t, fams, def, nil), 0.0001, def.Name)
	}
}

func TestSendersCollector(t *testing.T) {
	db, raw := newSQLite(t)
	require.NoError(t, fixtures.Seed(context.Background(), raw, db, conversation()))

	fams, err := families(t, NewSendersCollector(db, fixedClock))
	require.NoError(t, err)

	// carol wrote two days ago and has no sender row
	assert.InDelta(t, 2.0, value(t, fams, metric.SendersTotal, nil), 0.0001)
	assert.InDelta(t, 2.0, value(t, fams, metric.SendersActive24h, nil), 0.0001)
}

func TestSendersCollector_Empty(t *testing.T) {
	db, _ := newSQLite(t)

	fams, err := families(t, NewSendersCollector(db, fixedClock))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, value(t, fams, metric.SendersTotal, nil), 0.0001)
	assert.InDelta(t, 0.0, value(t, fams, metric.SendersActive24h, nil), 0.0001)
}

func TestMiscCollector(t *testing.T) {
	db, raw := newSQLite(t)
	require.NoError(t, fixtures.Seed(context.Background(), raw, db, conversation()))

	fams, err := families(t, NewMiscCollector(db, nil))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, value(t, fams, metric.ReactionsTotal, nil), 0.0001)
	assert.InDelta(t, 1.0, value(t, fams, metric.OptoutsTotal, nil), 0.0001)
	assert.InDelta(t, 3.0, value(t, fams, metric.KBTopicsTotal, nil), 0.0001)
}

func TestMiscCollector_MissingTablesCountAsZero(t *testing.T) {
	db, raw := newSQLite(t, fixtures.TableSender, fixtures.TableGroup, fixtures.TableMessage, fixtures.TableOptout)
	require.NoError(t, fixtures.Seed(context.Background(), raw, db, fixtures.Fixture{
		Optouts: []string{"a@s.whatsapp.net", "b@s.whatsapp.net"},
	}))

	fams, err := families(t, NewMiscCollector(db, nil))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, value(t, fams, metric.ReactionsTotal, nil), 0.0001)
	assert.InDelta(t, 2.0, value(t, fams, metric.OptoutsTotal, nil), 0.0001)
	assert.InDelta(t, 0.0, value(t, fams, metric.KBTopicsTotal, nil), 0.0001)
}

func TestMiscCollector_OtherErrorsFail(t *testing.T) {
	db, _ := newSQLite(t)
	require.NoError(t, db.Close())

	_, err := families(t, NewMiscCollector(db, nil))
	require.Error(t, err)
	assert.Equal(t, errors.KindConnection, errors.KindOf(err))
}

func TestDatabaseCollector(t *testing.T) {
	db, raw := newSQLite(t)
	require.NoError(t, fixtures.Seed(context.Background(), raw, db, conversation()))

	fams, err := families(t, NewDatabaseCollector(db, nil))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, value(t, fams, metric.DBConnectionStatus, nil), 0.0001)

	expected := map[string]float64{"message": 5, "sender": 2, "group": 3, "reaction": 1, "optout": 1}
	assert.Equal(t, len(expected), seriesCount(fams, metric.DBTableRows))
	for table, rows := range expected {
		assert.InDelta(t, rows, value(t, fams, metric.DBTableRows, map[string]string{"table_name": table}), 0.0001, table)
	}
}

func TestDatabaseCollector_SkipsMissingTable(t *testing.T) {
	db, _ := newSQLite(t, fixtures.TableSender, fixtures.TableGroup, fixtures.TableMessage, fixtures.TableOptout)

	fams, err := families(t, NewDatabaseCollector(db, nil))
	require.NoError(t, err)

	assert.Equal(t, 4, seriesCount(fams, metric.DBTableRows))
	assert.InDelta(t, 0.0, value(t, fams, metric.DBTableRows, map[string]string{"table_name": "group"}), 0.0001)
}

func TestDatabaseCollector_ConnectionFailure(t *testing.T) {
	db, _ := newSQLite(t)
	require.NoError(t, db.Close())

	fams, err := families(t, NewDatabaseCollector(db, nil))
	require.Error(t, err)
	assert.Equal(t, errors.KindConnection, errors.KindOf(err))

	// A failed collector's samples are dropped by the orchestrator; the
	// collector itself wrote none
	assert.Zero(t, seriesCount(fams, metric.DBConnectionStatus))

	registry, err := metric.NewRegistry(metric.WithoutRuntimeMetrics())
	require.NoError(t, err)
	sink := metric.NewSink(registry.Definitions())
	NewDatabaseCollector(db, nil).CollectFailure(sink)
	require.NoError(t, sink.Err())
	assert.Equal(t, 1, sink.Len())
}
