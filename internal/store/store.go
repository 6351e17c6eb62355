// Package store provides the Postgres persistence layer for hourly
// observations, daily aggregates and the station dimension.
package store

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and target tables.
type Config struct {
	DSN          string
	MaxConns     int32
	BatchSize    int
	HourlyTable  string
	LegacyTable  string
	DailyTable   string
	StationTable string
}

func (c *Config) applyDefaults() {
	if c.HourlyTable == "" {
		c.HourlyTable = "hourly_observation"
	}
	if c.LegacyTable == "" {
		c.LegacyTable = "climate_hourly"
	}
	if c.DailyTable == "" {
		c.DailyTable = "daily_aggregate"
	}
	if c.StationTable == "" {
		c.StationTable = "station_dimension"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
}

func (c *Config) validate() error {
	for _, table := range []string{c.HourlyTable, c.LegacyTable, c.DailyTable, c.StationTable} {
		if !validTableName.MatchString(table) {
			return fmt.Errorf("invalid table name %q", table)
		}
	}
	return nil
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists pipeline output into Postgres.
type Store struct {
	pool   dbPool
	cfg    Config
	logger *zap.Logger

	// Hourly target table, resolved once per run. mu guards it because
	// LoadHourly is called from concurrent file workers.
	mu           sync.Mutex
	hourlyTarget string
}

// New connects a pool and returns a Store.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newStore(pool, cfg, logger), nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool, cfg Config, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newStore(pool, cfg, logger), nil
}

func newStore(pool dbPool, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, cfg: cfg, logger: logger}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the target tables when they do not exist yet. The legacy
// hourly table is intentionally not created here; it only ever pre-exists.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			station_code TEXT NOT NULL,
			ts_utc TIMESTAMPTZ NOT NULL,
			ts_local TIMESTAMPTZ NOT NULL,
			year INT NOT NULL,
			month INT NOT NULL,
			day INT NOT NULL,
			hour INT NOT NULL,
			temperature NUMERIC(5,2),
			temp_max NUMERIC(5,2),
			temp_min NUMERIC(5,2),
			dew_point NUMERIC(5,2),
			humidity NUMERIC(5,2),
			humidity_max NUMERIC(5,2),
			humidity_min NUMERIC(5,2),
			wind_speed NUMERIC(5,2),
			wind_gust NUMERIC(5,2),
			wind_direction NUMERIC(5,2),
			radiation NUMERIC(6,2),
			precipitation NUMERIC(5,2),
			pressure NUMERIC(6,2),
			latitude NUMERIC(9,4),
			longitude NUMERIC(9,4),
			altitude NUMERIC(7,2),
			apparent_temp NUMERIC(5,2),
			heat_index NUMERIC(5,2),
			thermal_amplitude NUMERIC(5,2),
			rolling_heat_7d NUMERIC(5,2),
			source_file TEXT,
			source_line INT,
			loaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.cfg.HourlyTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_year_idx ON %s (year)`,
			s.cfg.HourlyTable, s.cfg.HourlyTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			city_id TEXT NOT NULL,
			date DATE NOT NULL,
			temp_mean NUMERIC(5,2),
			temp_max NUMERIC(5,2),
			temp_min NUMERIC(5,2),
			humidity_mean NUMERIC(5,2),
			precip_total NUMERIC(10,2),
			radiation_total NUMERIC(12,2),
			thermal_amplitude NUMERIC(5,2),
			apparent_mean NUMERIC(5,2),
			heat_index_max NUMERIC(5,2),
			rolling_heat_7d NUMERIC(5,2),
			risk_category TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (city_id, date)
		)`, s.cfg.DailyTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			station_code TEXT PRIMARY KEY,
			name TEXT,
			city_id BIGINT,
			latitude NUMERIC(9,4),
			longitude NUMERIC(9,4),
			altitude NUMERIC(7,2)
		)`, s.cfg.StationTable),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
