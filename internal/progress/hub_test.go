package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (c *captureSink) Consume(_ context.Context, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

func (c *captureSink) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func TestHubDeliversEventsToSinks(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchEvents: 2, MaxBatchWait: 10 * time.Millisecond}, sink)

	runID := uuid.New()
	now := time.Now().UTC()
	hub.Emit(Event{RunID: runID, TS: now, Stage: StageRunStart})
	hub.Emit(Event{RunID: runID, TS: now, Stage: StagePeriodStart, Period: 2020})
	hub.Emit(Event{RunID: runID, TS: now, Stage: StageFileDone, File: "a.csv", Rows: 42})

	require.NoError(t, hub.Close(context.Background()))

	got := sink.snapshot()
	require.Len(t, got, 3)
	require.Equal(t, StageRunStart, got[0].Stage)
	require.Equal(t, int64(42), got[2].Rows)
	require.True(t, sink.closed)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	// Missing run id and a period event without a period.
	hub.Emit(Event{TS: time.Now(), Stage: StageRunStart})
	hub.Emit(Event{RunID: uuid.New(), TS: time.Now(), Stage: StagePeriodDone})

	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.snapshot())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	now := time.Now()

	cases := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{"run start ok", Event{RunID: runID, TS: now, Stage: StageRunStart}, false},
		{"file skip needs file", Event{RunID: runID, TS: now, Stage: StageFileSkip}, true},
		{"file skip ok", Event{RunID: runID, TS: now, Stage: StageFileSkip, File: "x.csv"}, false},
		{"unknown stage", Event{RunID: runID, TS: now, Stage: "NOPE"}, true},
		{"zero timestamp", Event{RunID: runID, Stage: StageRunStart}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.evt.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
