// Package normalize turns raw archive CSV files into canonical hourly
// records. The archive spans several export generations with different
// encodings, delimiters, header spellings and timestamp layouts; this package
// absorbs all of that variance so downstream stages see one shape.
package normalize

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/climate"
)

// Skip reasons reported when a whole file yields no records.
const (
	SkipRegion = "region"
	SkipSchema = "schema"
	SkipEmpty  = "empty"
)

// Result is the outcome of normalizing one file. SkipReason is set when the
// file was skipped whole; Dropped counts individual rows removed for missing
// required fields, Filtered counts rows for other regions.
type Result struct {
	Records    []climate.HourlyRecord
	Metadata   Metadata
	RowsRead   int
	Dropped    int
	Filtered   int
	SkipReason string
}

// Normalizer converts archive files for one target region.
type Normalizer struct {
	region    string
	localZone *time.Location
	logger    *zap.Logger
}

// New builds a Normalizer. utcOffsetHours is the fixed local offset for the
// region; the region does not observe daylight saving.
func New(region string, utcOffsetHours int, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		region:    strings.ToUpper(region),
		localZone: time.FixedZone(fmt.Sprintf("UTC%+d", utcOffsetHours), utcOffsetHours*3600),
		logger:    logger,
	}
}

// NormalizeFile parses one archive CSV into canonical hourly records. Files
// no decoder combination can read return ErrUnreadableFile; files for other
// regions or with unusable schemas return an empty Result with a SkipReason.
func (n *Normalizer) NormalizeFile(path string) (Result, error) {
	t, err := readTable(path)
	if err != nil {
		return Result{}, err
	}

	md, mdErr := ReadMetadata(path)
	if mdErr != nil {
		n.logger.Warn("metadata preamble unreadable", zap.String("file", path), zap.Error(mdErr))
	}

	cols := mapColumns(t.header)
	res := Result{Metadata: md, RowsRead: len(t.rows)}

	// Without a per-row region column the preamble UF is the only region
	// signal; anything other than the target, including a missing UF,
	// skips the file.
	if _, hasRegionCol := cols[fieldRegion]; !hasRegionCol {
		if !strings.EqualFold(md.UF, n.region) {
			res.SkipReason = SkipRegion
			return res, nil
		}
	}
	if !hasTimestampColumns(cols) {
		n.logger.Warn("no usable timestamp columns", zap.String("file", path))
		res.SkipReason = SkipSchema
		return res, nil
	}
	if len(t.rows) == 0 {
		res.SkipReason = SkipEmpty
		return res, nil
	}

	fileStation := md.StationCode
	if fileStation == "" {
		fileStation = StationCodeFromFilename(filepath.Base(path))
	}

	base := filepath.Base(path)
	for i, row := range t.rows {
		cell := func(field string) string {
			idx, ok := cols[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		if hasColumn(cols, fieldRegion) && !strings.EqualFold(cell(fieldRegion), n.region) {
			res.Filtered++
			continue
		}

		ts, ok := parseTimestamp(cell(fieldDateHour), cell(fieldDate), cell(fieldHourUTC))
		if !ok {
			res.Dropped++
			continue
		}
		station := cell(fieldStationCode)
		if station == "" {
			station = fileStation
		}
		if station == "" {
			res.Dropped++
			continue
		}

		rec := climate.HourlyRecord{
			StationCode:    station,
			TimestampUTC:   ts,
			TimestampLocal: ts.In(n.localZone),
			SourceFile:     base,
			SourceLine:     t.lineNum[i],
		}
		n.fillMeasurements(&rec, cell, md)
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (n *Normalizer) fillMeasurements(rec *climate.HourlyRecord, cell func(string) string, md Metadata) {
	num := func(field string) sql.NullFloat64 {
		v, ok := parseNumber(cell(field))
		return scrubValue(field, v, ok)
	}

	rec.Temperature = num(fieldTemperature)
	rec.TempMax = num(fieldTempMax)
	rec.TempMin = num(fieldTempMin)
	rec.DewPoint = num(fieldDewPoint)
	rec.Humidity = num(fieldHumidity)
	rec.HumidityMax = num(fieldHumidityMax)
	rec.HumidityMin = num(fieldHumidityMin)
	rec.WindSpeed = num(fieldWindSpeed)
	rec.WindGust = num(fieldWindGust)
	rec.WindDirection = num(fieldWindDirection)
	rec.Radiation = num(fieldRadiation)
	rec.Precipitation = num(fieldPrecipitation)
	rec.Pressure = num(fieldPressure)

	rec.Latitude = coordinate(num(fieldLatitude), md.Latitude)
	rec.Longitude = coordinate(num(fieldLongitude), md.Longitude)
	rec.Altitude = coordinate(num(fieldAltitude), md.Altitude)
}

func coordinate(fromRow sql.NullFloat64, fromMeta *float64) sql.NullFloat64 {
	if fromRow.Valid {
		return fromRow
	}
	if fromMeta != nil {
		return scrubValue("", *fromMeta, true)
	}
	return sql.NullFloat64{}
}

// mapColumns resolves each header to its canonical tag. The first occurrence
// of a tag wins; unmapped headers are ignored.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		tag, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, seen := cols[tag]; !seen {
			cols[tag] = i
		}
	}
	return cols
}

func hasColumn(cols map[string]int, field string) bool {
	_, ok := cols[field]
	return ok
}

func hasTimestampColumns(cols map[string]int) bool {
	return hasColumn(cols, fieldDateHour) || hasColumn(cols, fieldDate)
}

var dateHourLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
	"02/01/2006 15:04",
}

// parseTimestamp resolves one row timestamp from whichever columns are
// present. All archive timestamps are UTC.
func parseTimestamp(dateHour, date, hour string) (time.Time, bool) {
	if dateHour != "" {
		for _, layout := range dateHourLayouts {
			if ts, err := time.ParseInLocation(layout, dateHour, time.UTC); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	}
	if date == "" {
		return time.Time{}, false
	}

	hh, mm, ok := parseHour(hour)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006/01/02", "02/01/2006", "2006-01-02"} {
		if d, err := time.ParseInLocation(layout, date, time.UTC); err == nil {
			return d.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), true
		}
	}
	return time.Time{}, false
}

// parseHour accepts "0000 UTC", "00:00", "0000" and bare hours. A missing
// hour column reads as midnight.
func parseHour(s string) (hh, mm int, ok bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "UTC", ""))
	s = strings.ReplaceAll(s, ":", "")
	if s == "" {
		return 0, 0, true
	}
	if len(s) <= 2 {
		s = s + "00"
	}
	if len(s) == 3 {
		s = "0" + s
	}
	if len(s) != 4 {
		return 0, 0, false
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d%2d", &h, &m); err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
