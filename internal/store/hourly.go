package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/climate"
)

// LoadStats summarizes one hourly load call.
type LoadStats struct {
	Table    string
	Inserted int64
	Failed   int64
}

// hourlyTable resolves the hourly target once per run: the rich table when it
// exists, otherwise the append-only legacy table. Serialized so concurrent
// loaders probe at most once.
func (s *Store) hourlyTable(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hourlyTarget != "" {
		return s.hourlyTarget, nil
	}

	var regclass string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(to_regclass($1)::text, '')`, s.cfg.HourlyTable).Scan(&regclass)
	if err != nil {
		return "", fmt.Errorf("probe hourly table: %w", err)
	}
	if regclass != "" {
		s.hourlyTarget = s.cfg.HourlyTable
	} else {
		s.logger.Warn("hourly table missing, falling back to legacy table",
			zap.String("hourly", s.cfg.HourlyTable),
			zap.String("legacy", s.cfg.LegacyTable))
		s.hourlyTarget = s.cfg.LegacyTable
	}
	return s.hourlyTarget, nil
}

// LoadHourly appends canonical hourly records in bounded batches. Row
// failures are isolated: the failing row is counted and skipped, the batch
// continues. The returned stats name the table that actually received rows.
func (s *Store) LoadHourly(ctx context.Context, records []climate.HourlyRecord) (LoadStats, error) {
	table, err := s.hourlyTable(ctx)
	if err != nil {
		return LoadStats{}, err
	}
	stats := LoadStats{Table: table}
	if len(records) == 0 {
		return stats, nil
	}

	legacy := table == s.cfg.LegacyTable
	insert := hourlyInsertSQL(table)
	if legacy {
		insert = legacyInsertSQL(table)
	}

	for start := 0; start < len(records); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			r := &records[i]
			var args []any
			if legacy {
				args = legacyArgs(r)
			} else {
				args = hourlyArgs(r)
			}
			if _, err := s.pool.Exec(ctx, insert, args...); err != nil {
				stats.Failed++
				if stats.Failed <= 5 {
					s.logger.Warn("hourly row insert failed",
						zap.String("station", r.StationCode),
						zap.Time("ts", r.TimestampUTC),
						zap.Error(err))
				}
				continue
			}
			stats.Inserted++
		}
		s.logger.Debug("hourly batch loaded",
			zap.String("table", table), zap.Int("from", start), zap.Int("to", end))
	}
	return stats, nil
}

func hourlyInsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (
		station_code, ts_utc, ts_local, year, month, day, hour,
		temperature, temp_max, temp_min, dew_point,
		humidity, humidity_max, humidity_min,
		wind_speed, wind_gust, wind_direction,
		radiation, precipitation, pressure,
		latitude, longitude, altitude,
		apparent_temp, heat_index, thermal_amplitude, rolling_heat_7d,
		source_file, source_line
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)`, table)
}

func hourlyArgs(r *climate.HourlyRecord) []any {
	ts := r.TimestampUTC
	return []any{
		r.StationCode, r.TimestampUTC, r.TimestampLocal,
		ts.Year(), int(ts.Month()), ts.Day(), ts.Hour(),
		r.Temperature, r.TempMax, r.TempMin, r.DewPoint,
		r.Humidity, r.HumidityMax, r.HumidityMin,
		r.WindSpeed, r.WindGust, r.WindDirection,
		r.Radiation, r.Precipitation, r.Pressure,
		r.Latitude, r.Longitude, r.Altitude,
		r.ApparentTemp, r.HeatIndex, r.ThermalAmplitude, r.RollingHeat7d,
		r.SourceFile, r.SourceLine,
	}
}

// The legacy table predates the derived columns and keys time on a single
// date column.
func legacyInsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (
		station_code, date, temperature, temp_max, temp_min,
		humidity, wind_speed, radiation, precipitation, pressure, source_file
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, table)
}

func legacyArgs(r *climate.HourlyRecord) []any {
	return []any{
		r.StationCode, r.TimestampUTC, r.Temperature, r.TempMax, r.TempMin,
		r.Humidity, r.WindSpeed, r.Radiation, r.Precipitation, r.Pressure,
		r.SourceFile,
	}
}
