// Package climate defines the canonical record types shared across the ETL
// pipeline stages.
package climate

import (
	"database/sql"
	"time"
)

// HourlyRecord is one normalized observation for one station at one UTC
// timestamp. StationCode and TimestampUTC are always set; every other
// numeric field may be absent (missing on source or scrubbed as invalid).
// The derived heat-stress fields are appended by the heat metric engine and
// are never recomputed in place afterwards.
type HourlyRecord struct {
	StationCode    string
	TimestampUTC   time.Time
	TimestampLocal time.Time

	Temperature   sql.NullFloat64
	TempMax       sql.NullFloat64
	TempMin       sql.NullFloat64
	DewPoint      sql.NullFloat64
	Humidity      sql.NullFloat64
	HumidityMax   sql.NullFloat64
	HumidityMin   sql.NullFloat64
	WindSpeed     sql.NullFloat64
	WindGust      sql.NullFloat64
	WindDirection sql.NullFloat64
	Radiation     sql.NullFloat64
	Precipitation sql.NullFloat64
	Pressure      sql.NullFloat64

	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
	Altitude  sql.NullFloat64

	// Provenance back to the raw archive file.
	SourceFile string
	SourceLine int

	// Derived heat-stress fields.
	ApparentTemp     sql.NullFloat64
	HeatIndex        sql.NullFloat64
	ThermalAmplitude sql.NullFloat64
	RollingHeat7d    sql.NullFloat64
}

// Station is one row of the station dimension table. CityID is null when the
// station has not been matched to a city; consumers fall back to grouping by
// the station code itself so observations are never dropped.
type Station struct {
	Code      string
	Name      string
	CityID    sql.NullInt64
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
	Altitude  sql.NullFloat64
}

// RiskCategory is the ordinal daily heat-risk classification derived from
// the daily maximum heat index.
type RiskCategory string

const (
	RiskUnknown  RiskCategory = "Unknown"
	RiskLow      RiskCategory = "Low"
	RiskModerate RiskCategory = "Moderate"
	RiskHigh     RiskCategory = "High"
	RiskVeryHigh RiskCategory = "Very High"
	RiskExtreme  RiskCategory = "Extreme"
)

// DailyAggregate is one row per (city, calendar date). CityKey is either the
// numeric city id rendered as text or, for unmapped stations, the station
// code acting as its own grouping key.
type DailyAggregate struct {
	CityKey string
	Date    time.Time

	TempMean         sql.NullFloat64
	TempMax          sql.NullFloat64
	TempMin          sql.NullFloat64
	HumidityMean     sql.NullFloat64
	PrecipTotal      sql.NullFloat64
	RadiationTotal   sql.NullFloat64
	ThermalAmplitude sql.NullFloat64
	ApparentMean     sql.NullFloat64
	HeatIndexMax     sql.NullFloat64
	RollingHeat7d    sql.NullFloat64
	Risk             RiskCategory
}

// Float returns a valid NullFloat64.
func Float(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
