// Package heatmetrics derives heat-stress indicators from canonical hourly
// records: apparent temperature, heat index, thermal amplitude and a rolling
// seven-day apparent-temperature mean per station.
package heatmetrics

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/heatisland/climate-etl/internal/climate"
)

// The NOAA heat index regression is only physically meaningful in hot, humid
// conditions; below these thresholds the raw air temperature is used.
const (
	heatIndexMinTempC    = 26.0
	heatIndexMinHumidity = 40.0
)

const rollingWindow = 7 * 24 * time.Hour

// ApparentTemperature computes the Steadman apparent temperature in Celsius.
// Absent temperature or humidity propagates as absent; absent wind reads as
// calm.
func ApparentTemperature(tempC, humidity, windSpeed sql.NullFloat64) sql.NullFloat64 {
	if !tempC.Valid || !humidity.Valid {
		return sql.NullFloat64{}
	}
	t := tempC.Float64
	w := 0.0
	if windSpeed.Valid {
		w = windSpeed.Float64
	}
	e := (humidity.Float64 / 100.0) * 6.105 * math.Exp(17.27*t/(237.7+t))
	return climate.Float(t + 0.33*e - 0.70*w - 4.00)
}

// HeatIndex computes the NOAA heat index in Celsius. Below the heat/humidity
// gate the regression is invalid and the raw temperature is returned instead.
func HeatIndex(tempC, humidity sql.NullFloat64) sql.NullFloat64 {
	if !tempC.Valid || !humidity.Valid {
		return sql.NullFloat64{}
	}
	t := tempC.Float64
	rh := humidity.Float64
	if t < heatIndexMinTempC || rh < heatIndexMinHumidity {
		return climate.Float(t)
	}

	tf := t*9/5 + 32
	hiF := -42.379 +
		2.04901523*tf +
		10.14333127*rh -
		0.22475541*tf*rh -
		0.00683783*tf*tf -
		0.05481717*rh*rh +
		0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh -
		0.00000199*tf*tf*rh*rh
	return climate.Float((hiF - 32) * 5 / 9)
}

// ThermalAmplitude is the reported hourly max minus min temperature, absent
// when either extreme is missing.
func ThermalAmplitude(tempMax, tempMin sql.NullFloat64) sql.NullFloat64 {
	if !tempMax.Valid || !tempMin.Valid {
		return sql.NullFloat64{}
	}
	return climate.Float(tempMax.Float64 - tempMin.Float64)
}

// Enrich fills the derived heat-stress fields of every record in place, then
// computes the per-station rolling seven-day mean. Records are reordered by
// (station, time) as a side effect. Enrich is deterministic: re-running it
// over the same records yields identical values.
func Enrich(records []climate.HourlyRecord) {
	for i := range records {
		r := &records[i]
		r.ApparentTemp = ApparentTemperature(r.Temperature, r.Humidity, r.WindSpeed)
		r.HeatIndex = HeatIndex(r.Temperature, r.Humidity)
		r.ThermalAmplitude = ThermalAmplitude(r.TempMax, r.TempMin)
	}
	addRollingMeans(records)
}

// addRollingMeans computes, per station, the trailing time-window mean of
// apparent temperature over (t-7d, t]. The window is elapsed time, not row
// count, so reporting gaps widen it naturally.
func addRollingMeans(records []climate.HourlyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].StationCode != records[j].StationCode {
			return records[i].StationCode < records[j].StationCode
		}
		return records[i].TimestampUTC.Before(records[j].TimestampUTC)
	})

	start := 0
	for start < len(records) {
		end := start
		for end < len(records) && records[end].StationCode == records[start].StationCode {
			end++
		}
		rollStation(records[start:end])
		start = end
	}
}

func rollStation(records []climate.HourlyRecord) {
	var (
		sum   float64
		count int
		lo    int
	)
	for i := range records {
		cutoff := records[i].TimestampUTC.Add(-rollingWindow)
		for lo < i && !records[lo].TimestampUTC.After(cutoff) {
			if records[lo].ApparentTemp.Valid {
				sum -= records[lo].ApparentTemp.Float64
				count--
			}
			lo++
		}
		if records[i].ApparentTemp.Valid {
			sum += records[i].ApparentTemp.Float64
			count++
		}
		if count > 0 {
			records[i].RollingHeat7d = climate.Float(sum / float64(count))
		} else {
			records[i].RollingHeat7d = sql.NullFloat64{}
		}
	}
}
