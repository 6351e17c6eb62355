package store

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/climate"
)

// UpsertStations writes station metadata into the dimension table. Existing
// values are preserved when the incoming row has gaps, so a sparse preamble
// never erases a previously known coordinate or city mapping.
func (s *Store) UpsertStations(ctx context.Context, stations []climate.Station) error {
	upsert := fmt.Sprintf(`INSERT INTO %s (
		station_code, name, city_id, latitude, longitude, altitude
	) VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (station_code) DO UPDATE SET
		name = COALESCE(NULLIF(EXCLUDED.name, ''), %s.name),
		city_id = COALESCE(EXCLUDED.city_id, %s.city_id),
		latitude = COALESCE(EXCLUDED.latitude, %s.latitude),
		longitude = COALESCE(EXCLUDED.longitude, %s.longitude),
		altitude = COALESCE(EXCLUDED.altitude, %s.altitude)`,
		s.cfg.StationTable, s.cfg.StationTable, s.cfg.StationTable,
		s.cfg.StationTable, s.cfg.StationTable, s.cfg.StationTable)

	for i := range stations {
		st := &stations[i]
		_, err := s.pool.Exec(ctx, upsert,
			st.Code, st.Name, st.CityID, st.Latitude, st.Longitude, st.Altitude)
		if err != nil {
			return fmt.Errorf("upsert station %s: %w", st.Code, err)
		}
	}
	return nil
}

// StationCityMap returns station code to city key for every station with a
// known city. Unmapped stations are omitted; the aggregator then uses the
// station code itself as the grouping key.
func (s *Store) StationCityMap(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf(
		`SELECT station_code, city_id FROM %s WHERE city_id IS NOT NULL`, s.cfg.StationTable)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query station dimension: %w", err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var (
			code   string
			cityID int64
		)
		if err := rows.Scan(&code, &cityID); err != nil {
			return nil, fmt.Errorf("scan station row: %w", err)
		}
		m[code] = strconv.FormatInt(cityID, 10)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate station rows: %w", err)
	}
	return m, nil
}

// Years returns the distinct years already present in the hourly layer,
// falling back to the legacy table when the rich one is absent.
func (s *Store) Years(ctx context.Context) (map[int]struct{}, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT year FROM %s WHERE year IS NOT NULL`, s.cfg.HourlyTable)
	years, err := s.queryYears(ctx, query)
	if err == nil {
		return years, nil
	}
	s.logger.Warn("hourly year scan failed, trying legacy table", zap.Error(err))

	legacy := fmt.Sprintf(
		`SELECT DISTINCT EXTRACT(YEAR FROM date)::int FROM %s`, s.cfg.LegacyTable)
	years, legacyErr := s.queryYears(ctx, legacy)
	if legacyErr != nil {
		return nil, fmt.Errorf("scan loaded years: %w", legacyErr)
	}
	return years, nil
}

func (s *Store) queryYears(ctx context.Context, query string) (map[int]struct{}, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := make(map[int]struct{})
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years[y] = struct{}{}
	}
	return years, rows.Err()
}
