package migrate

import (
	"testing"

	"entgo.io/ent/schema/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionEventsTable(t *testing.T) {
	tbl := PredictionEventsTable
	assert.Equal(t, "prediction_events", tbl.Name)
	assert.Equal(t, []string{
		"id", "sequence", "timestamp", "session_id", "model_path", "features",
		"prob_no_event", "prob_event", "high_risk", "success", "error_message",
	}, Columns(tbl))

	require.Len(t, tbl.PrimaryKey, 1)
	assert.Equal(t, "id", tbl.PrimaryKey[0].Name)
	assert.True(t, tbl.PrimaryKey[0].Increment)
}

func TestColumnTypesAndDefaults(t *testing.T) {
	cols := map[string]struct {
		typ field.Type
		def any
	}{}
	for _, c := range PredictionEventsTable.Columns {
		cols[c.Name] = struct {
			typ field.Type
			def any
		}{c.Type, c.Default}
	}

	assert.Equal(t, field.TypeInt64, cols["sequence"].typ)
	assert.Equal(t, field.TypeInt64, cols["timestamp"].typ)
	assert.Equal(t, field.TypeString, cols["features"].typ)
	assert.Equal(t, field.TypeFloat64, cols["prob_event"].typ)
	assert.Equal(t, field.TypeBool, cols["success"].typ)
	assert.Equal(t, float64(0), cols["prob_event"].def)
	assert.Equal(t, false, cols["high_risk"].def)
	assert.Equal(t, "", cols["error_message"].def)
	assert.Nil(t, cols["success"].def)
}

func TestIndexes(t *testing.T) {
	var names []string
	for _, ix := range PredictionEventsTable.Indexes {
		names = append(names, ix.Name)
		require.NotEmpty(t, ix.Columns)
	}
	assert.ElementsMatch(t, []string{"predictionevent_timestamp", "predictionevent_session_id"}, names)

	for _, c := range PredictionEventsTable.Columns {
		if c.Name == "sequence" {
			assert.True(t, c.Unique)
		}
	}
}
