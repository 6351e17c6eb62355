package normalize

import "database/sql"

// scrubbing bounds from the archive conventions: -9999 family values are
// explicit no-data markers, and no hourly surface measurement legitimately
// reaches four digits.
const magnitudeBound = 1000

func isSentinel(v float64) bool {
	return v == -9999 || v == -99999
}

// scrubValue converts one parsed cell into a nullable measurement, applying
// sentinel, magnitude and per-field physical-range checks.
func scrubValue(field string, v float64, ok bool) sql.NullFloat64 {
	if !ok || isSentinel(v) {
		return sql.NullFloat64{}
	}
	if v >= magnitudeBound || v <= -magnitudeBound {
		return sql.NullFloat64{}
	}
	switch field {
	case fieldHumidity, fieldHumidityMax, fieldHumidityMin:
		if v < 0 || v > 100 {
			return sql.NullFloat64{}
		}
	case fieldPrecipitation, fieldRadiation:
		if v < 0 {
			return sql.NullFloat64{}
		}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
