package heatmetrics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heatisland/climate-etl/internal/climate"
)

func TestApparentTemperatureKnownValue(t *testing.T) {
	t.Parallel()

	got := ApparentTemperature(climate.Float(30), climate.Float(70), climate.Float(2))
	require.True(t, got.Valid)
	require.InDelta(t, 34.37, got.Float64, 0.01)
}

func TestApparentTemperatureAbsentWindReadsAsCalm(t *testing.T) {
	t.Parallel()

	calm := ApparentTemperature(climate.Float(30), climate.Float(70), sql.NullFloat64{})
	windy := ApparentTemperature(climate.Float(30), climate.Float(70), climate.Float(0))
	require.True(t, calm.Valid)
	require.Equal(t, windy.Float64, calm.Float64)
}

func TestApparentTemperatureRequiresTempAndHumidity(t *testing.T) {
	t.Parallel()

	require.False(t, ApparentTemperature(sql.NullFloat64{}, climate.Float(70), climate.Float(1)).Valid)
	require.False(t, ApparentTemperature(climate.Float(30), sql.NullFloat64{}, climate.Float(1)).Valid)
}

func TestHeatIndexBelowGateEqualsRawTemperature(t *testing.T) {
	t.Parallel()

	cool := HeatIndex(climate.Float(25), climate.Float(80))
	require.True(t, cool.Valid)
	require.Equal(t, 25.0, cool.Float64)

	dry := HeatIndex(climate.Float(30), climate.Float(30))
	require.True(t, dry.Valid)
	require.Equal(t, 30.0, dry.Float64)
}

func TestHeatIndexAboveGateExceedsRawTemperature(t *testing.T) {
	t.Parallel()

	hi := HeatIndex(climate.Float(32), climate.Float(70))
	require.True(t, hi.Valid)
	require.Greater(t, hi.Float64, 32.0)
}

func TestThermalAmplitude(t *testing.T) {
	t.Parallel()

	amp := ThermalAmplitude(climate.Float(31.5), climate.Float(24.0))
	require.True(t, amp.Valid)
	require.InDelta(t, 7.5, amp.Float64, 1e-9)

	require.False(t, ThermalAmplitude(climate.Float(31.5), sql.NullFloat64{}).Valid)
}

func hourlyAt(station string, ts time.Time, temp, humidity float64) climate.HourlyRecord {
	return climate.HourlyRecord{
		StationCode:  station,
		TimestampUTC: ts,
		Temperature:  climate.Float(temp),
		Humidity:     climate.Float(humidity),
	}
}

func TestEnrichRollingMeanUsesTrailingTimeWindow(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []climate.HourlyRecord{
		hourlyAt("A301", t0, 30, 70),
		hourlyAt("A301", t0.Add(time.Hour), 32, 70),
		// Exactly seven days after t0: t0 falls out of the window.
		hourlyAt("A301", t0.Add(7*24*time.Hour), 28, 70),
	}
	Enrich(records)

	first := records[0]
	second := records[1]
	third := records[2]

	require.True(t, first.RollingHeat7d.Valid)
	require.Equal(t, first.ApparentTemp.Float64, first.RollingHeat7d.Float64)

	wantSecond := (first.ApparentTemp.Float64 + second.ApparentTemp.Float64) / 2
	require.InDelta(t, wantSecond, second.RollingHeat7d.Float64, 1e-9)

	wantThird := (second.ApparentTemp.Float64 + third.ApparentTemp.Float64) / 2
	require.InDelta(t, wantThird, third.RollingHeat7d.Float64, 1e-9)
}

func TestEnrichRollingMeanIsPerStation(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []climate.HourlyRecord{
		hourlyAt("A301", t0, 30, 70),
		hourlyAt("A366", t0.Add(time.Hour), 40, 70),
	}
	Enrich(records)

	for _, r := range records {
		require.Equal(t, r.ApparentTemp.Float64, r.RollingHeat7d.Float64,
			"each station's first record averages only itself")
	}
}

func TestEnrichIsIdempotent(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []climate.HourlyRecord{
		hourlyAt("A301", t0, 30, 70),
		hourlyAt("A301", t0.Add(time.Hour), 31, 65),
	}
	Enrich(records)
	want := append([]climate.HourlyRecord(nil), records...)

	Enrich(records)
	require.Equal(t, want, records)
}

func TestEnrichWithMissingInputsLeavesMetricsAbsent(t *testing.T) {
	t.Parallel()

	records := []climate.HourlyRecord{{
		StationCode:  "A301",
		TimestampUTC: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	Enrich(records)

	r := records[0]
	require.False(t, r.ApparentTemp.Valid)
	require.False(t, r.HeatIndex.Valid)
	require.False(t, r.ThermalAmplitude.Valid)
	require.False(t, r.RollingHeat7d.Valid)
}
