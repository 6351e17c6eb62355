// Package aggregate rolls enriched hourly records up into one row per city
// and calendar date, including the daily heat-risk classification.
package aggregate

import (
	"database/sql"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/climate"
)

// ClassifyHeatRisk maps the daily maximum heat index to an ordinal risk
// category. The function is total: an absent heat index classifies as
// Unknown, never as an error.
func ClassifyHeatRisk(maxHeatIndex sql.NullFloat64) climate.RiskCategory {
	if !maxHeatIndex.Valid {
		return climate.RiskUnknown
	}
	switch v := maxHeatIndex.Float64; {
	case v < 27:
		return climate.RiskLow
	case v < 33:
		return climate.RiskModerate
	case v < 41:
		return climate.RiskHigh
	case v <= 52:
		return climate.RiskVeryHigh
	default:
		return climate.RiskExtreme
	}
}

// Aggregator groups hourly records into daily city aggregates. cityByStation
// maps station codes to city keys; unmapped stations group under their own
// code so observations are never dropped.
type Aggregator struct {
	cityByStation map[string]string
	logger        *zap.Logger
}

// New builds an Aggregator from the station dimension lookup.
func New(cityByStation map[string]string, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{cityByStation: cityByStation, logger: logger}
}

type groupKey struct {
	city string
	date time.Time
}

type accumulator struct {
	tempSum, tempCount     float64
	tempMax, tempMin       sql.NullFloat64
	humiditySum, humCount  float64
	precipSum              sql.NullFloat64
	radiationSum           sql.NullFloat64
	apparentSum, appCount  float64
	heatIndexMax           sql.NullFloat64
	rollingSum, rollCount  float64
}

// Daily aggregates enriched hourly records by (city, calendar date of the
// UTC timestamp) and returns rows sorted by city then date.
func (a *Aggregator) Daily(records []climate.HourlyRecord) []climate.DailyAggregate {
	groups := make(map[groupKey]*accumulator)
	unmapped := make(map[string]struct{})
	for i := range records {
		r := &records[i]
		city, ok := a.cityByStation[r.StationCode]
		if !ok || city == "" {
			city = r.StationCode
			unmapped[r.StationCode] = struct{}{}
		}
		key := groupKey{city: city, date: dateOf(r.TimestampUTC)}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.add(r)
	}

	out := make([]climate.DailyAggregate, 0, len(groups))
	for key, acc := range groups {
		out = append(out, acc.finish(key))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CityKey != out[j].CityKey {
			return out[i].CityKey < out[j].CityKey
		}
		return out[i].Date.Before(out[j].Date)
	})
	if len(unmapped) > 0 {
		codes := make([]string, 0, len(unmapped))
		for code := range unmapped {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		a.logger.Warn("stations without city mapping grouped under their own code",
			zap.Strings("stations", codes))
	}
	a.logger.Debug("aggregated daily rows",
		zap.Int("hourly", len(records)), zap.Int("daily", len(out)))
	return out
}

func dateOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func (acc *accumulator) add(r *climate.HourlyRecord) {
	if r.Temperature.Valid {
		acc.tempSum += r.Temperature.Float64
		acc.tempCount++
		acc.tempMax = maxOf(acc.tempMax, r.Temperature)
		acc.tempMin = minOf(acc.tempMin, r.Temperature)
	}
	if r.Humidity.Valid {
		acc.humiditySum += r.Humidity.Float64
		acc.humCount++
	}
	acc.precipSum = sumOf(acc.precipSum, r.Precipitation)
	acc.radiationSum = sumOf(acc.radiationSum, r.Radiation)
	if r.ApparentTemp.Valid {
		acc.apparentSum += r.ApparentTemp.Float64
		acc.appCount++
	}
	acc.heatIndexMax = maxOf(acc.heatIndexMax, r.HeatIndex)
	if r.RollingHeat7d.Valid {
		acc.rollingSum += r.RollingHeat7d.Float64
		acc.rollCount++
	}
}

func (acc *accumulator) finish(key groupKey) climate.DailyAggregate {
	agg := climate.DailyAggregate{
		CityKey:        key.city,
		Date:           key.date,
		TempMean:       meanOf(acc.tempSum, acc.tempCount),
		TempMax:        acc.tempMax,
		TempMin:        acc.tempMin,
		HumidityMean:   meanOf(acc.humiditySum, acc.humCount),
		PrecipTotal:    acc.precipSum,
		RadiationTotal: acc.radiationSum,
		ApparentMean:   meanOf(acc.apparentSum, acc.appCount),
		HeatIndexMax:   acc.heatIndexMax,
		RollingHeat7d:  meanOf(acc.rollingSum, acc.rollCount),
	}
	if agg.TempMax.Valid && agg.TempMin.Valid {
		agg.ThermalAmplitude = climate.Float(agg.TempMax.Float64 - agg.TempMin.Float64)
	}
	revalidate(&agg)
	agg.Risk = ClassifyHeatRisk(agg.HeatIndexMax)
	return agg
}

// revalidate re-applies the magnitude and physical-range rules to the
// aggregate outputs. Sums over long gaps can exceed bounds that every
// individual input satisfied.
func revalidate(agg *climate.DailyAggregate) {
	fields := []*sql.NullFloat64{
		&agg.TempMean, &agg.TempMax, &agg.TempMin, &agg.HumidityMean,
		&agg.ThermalAmplitude, &agg.ApparentMean, &agg.HeatIndexMax,
		&agg.RollingHeat7d,
	}
	for _, f := range fields {
		if f.Valid && (f.Float64 >= 1000 || f.Float64 <= -1000) {
			*f = sql.NullFloat64{}
		}
	}
	if agg.HumidityMean.Valid && (agg.HumidityMean.Float64 < 0 || agg.HumidityMean.Float64 > 100) {
		agg.HumidityMean = sql.NullFloat64{}
	}
	for _, f := range []*sql.NullFloat64{&agg.PrecipTotal, &agg.RadiationTotal} {
		if f.Valid && f.Float64 < 0 {
			*f = sql.NullFloat64{}
		}
	}
}

func meanOf(sum, count float64) sql.NullFloat64 {
	if count == 0 {
		return sql.NullFloat64{}
	}
	return climate.Float(sum / count)
}

func maxOf(cur, v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return cur
	}
	if !cur.Valid || v.Float64 > cur.Float64 {
		return v
	}
	return cur
}

func minOf(cur, v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return cur
	}
	if !cur.Valid || v.Float64 < cur.Float64 {
		return v
	}
	return cur
}

func sumOf(cur, v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return cur
	}
	if !cur.Valid {
		return v
	}
	return climate.Float(cur.Float64 + v.Float64)
}
