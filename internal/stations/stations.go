// Package stations harvests station identity from archive file preambles to
// populate the station dimension.
package stations

import (
	"database/sql"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/archive"
	"github.com/heatisland/climate-etl/internal/climate"
	"github.com/heatisland/climate-etl/internal/normalize"
)

// Harvest scans every CSV under dir and collects one Station per distinct
// station code belonging to the target region. Files whose preamble cannot
// be read are skipped. City mapping is left null; it is maintained out of
// band and preserved by the dimension upsert.
func Harvest(dir, region string, logger *zap.Logger) ([]climate.Station, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := archive.ListCSVs(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]climate.Station)
	var order []string
	for _, file := range files {
		md, err := normalize.ReadMetadata(file)
		if err != nil {
			logger.Warn("station preamble unreadable", zap.String("file", file), zap.Error(err))
			continue
		}
		if md.UF != "" && !strings.EqualFold(md.UF, region) {
			continue
		}

		code := md.StationCode
		if code == "" {
			code = normalize.StationCodeFromFilename(filepath.Base(file))
		}
		if code == "" {
			continue
		}

		st, ok := seen[code]
		if !ok {
			st = climate.Station{Code: code}
			order = append(order, code)
		}
		if st.Name == "" {
			st.Name = md.StationName
		}
		st.Latitude = firstCoord(st.Latitude, md.Latitude)
		st.Longitude = firstCoord(st.Longitude, md.Longitude)
		st.Altitude = firstCoord(st.Altitude, md.Altitude)
		seen[code] = st
	}

	stations := make([]climate.Station, 0, len(order))
	for _, code := range order {
		stations = append(stations, seen[code])
	}
	return stations, nil
}

func firstCoord(cur sql.NullFloat64, v *float64) sql.NullFloat64 {
	if cur.Valid || v == nil {
		return cur
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
