package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsSinkCountsEventsByStage(t *testing.T) {
	t.Parallel()

	sink := NewMetricsSink(nil)
	runID := uuid.New()
	now := time.Now().UTC()

	err := sink.Consume(context.Background(), []Event{
		{RunID: runID, TS: now, Stage: StageRunStart},
		{RunID: runID, TS: now, Stage: StageFileDone, File: "a.csv"},
		{RunID: runID, TS: now, Stage: StageFileDone, File: "b.csv"},
	})
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues(string(StageRunStart))))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues(string(StageFileDone))))
	require.NoError(t, sink.Close(context.Background()))
}
