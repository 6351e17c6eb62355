// Package progress defines the event stream emitted by pipeline runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageRunDone     Stage = "RUN_DONE"
	StagePeriodStart Stage = "PERIOD_START"
	StagePeriodDone  Stage = "PERIOD_DONE"
	StagePeriodError Stage = "PERIOD_ERROR"
	StageFileDone    Stage = "FILE_DONE"
	StageFileSkip    Stage = "FILE_SKIP"
)

// Event captures a single milestone of a pipeline run.
type Event struct {
	// RunID identifies the pipeline invocation emitting the event.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Period is the reporting period (year) the event belongs to, when any.
	Period int
	// File is the raw file name for file-scoped events.
	File string
	// Rows carries the record count delta for the milestone.
	Rows int64
	// Note lets emitters attach low-volume context (e.g. skip reason).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StagePeriodStart, StagePeriodDone, StagePeriodError:
		if e.Period == 0 {
			return errors.New("period events require a period")
		}
	case StageFileDone, StageFileSkip:
		if e.File == "" {
			return errors.New("file events require a file name")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}
