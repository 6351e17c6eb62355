package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/climate"
)

// LoadDaily upserts daily aggregates keyed on (city_id, date). On conflict
// every derived column is replaced, so repeated aggregation of the same date
// always converges to one stored state. Row failures are isolated the same
// way LoadHourly isolates them: the failing row is counted and skipped.
func (s *Store) LoadDaily(ctx context.Context, rows []climate.DailyAggregate) (LoadStats, error) {
	upsert := fmt.Sprintf(`INSERT INTO %s (
		city_id, date, temp_mean, temp_max, temp_min, humidity_mean,
		precip_total, radiation_total, thermal_amplitude, apparent_mean,
		heat_index_max, rolling_heat_7d, risk_category, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
	ON CONFLICT (city_id, date) DO UPDATE SET
		temp_mean = EXCLUDED.temp_mean,
		temp_max = EXCLUDED.temp_max,
		temp_min = EXCLUDED.temp_min,
		humidity_mean = EXCLUDED.humidity_mean,
		precip_total = EXCLUDED.precip_total,
		radiation_total = EXCLUDED.radiation_total,
		thermal_amplitude = EXCLUDED.thermal_amplitude,
		apparent_mean = EXCLUDED.apparent_mean,
		heat_index_max = EXCLUDED.heat_index_max,
		rolling_heat_7d = EXCLUDED.rolling_heat_7d,
		risk_category = EXCLUDED.risk_category,
		updated_at = NOW()`, s.cfg.DailyTable)

	stats := LoadStats{Table: s.cfg.DailyTable}
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r := &rows[i]
		_, err := s.pool.Exec(ctx, upsert,
			r.CityKey, r.Date, r.TempMean, r.TempMax, r.TempMin, r.HumidityMean,
			r.PrecipTotal, r.RadiationTotal, r.ThermalAmplitude, r.ApparentMean,
			r.HeatIndexMax, r.RollingHeat7d, string(r.Risk),
		)
		if err != nil {
			stats.Failed++
			if stats.Failed <= 5 {
				s.logger.Warn("daily upsert failed",
					zap.String("city", r.CityKey), zap.Time("date", r.Date), zap.Error(err))
			}
			continue
		}
		stats.Inserted++
	}
	return stats, nil
}
