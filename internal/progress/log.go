package progress

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes progress events to a zap logger. Period errors and file
// skips surface at warn level so a run's problems are visible without debug
// logging.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, events []Event) error {
	for _, evt := range events {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.Period != 0 {
			fields = append(fields, zap.Int("period", evt.Period))
		}
		if evt.File != "" {
			fields = append(fields, zap.String("file", evt.File))
		}
		if evt.Rows != 0 {
			fields = append(fields, zap.Int64("rows", evt.Rows))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		switch evt.Stage {
		case StagePeriodError, StageFileSkip:
			s.logger.Warn("pipeline progress", fields...)
		default:
			s.logger.Info("pipeline progress", fields...)
		}
	}
	return nil
}

// Close implements Sink.
func (s *LogSink) Close(context.Context) error { return nil }
