// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Region   RegionConfig   `mapstructure:"region"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DBConfig controls access to the Postgres store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxConns     int    `mapstructure:"max_conns"`
	BatchSize    int    `mapstructure:"batch_size"`
	TimeoutSecs  int    `mapstructure:"timeout_seconds"`
	HourlyTable  string `mapstructure:"hourly_table"`
	LegacyTable  string `mapstructure:"legacy_table"`
	DailyTable   string `mapstructure:"daily_table"`
	StationTable string `mapstructure:"station_table"`
}

// ArchiveConfig governs remote archive retrieval and local working storage.
type ArchiveConfig struct {
	URLTemplate    string `mapstructure:"url_template"`
	DataDir        string `mapstructure:"data_dir"`
	TimeoutSecs    int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	BackoffInitial int    `mapstructure:"backoff_initial_ms"`
}

// RegionConfig pins the pipeline to one administrative subdivision.
type RegionConfig struct {
	Code      string `mapstructure:"code"`
	UTCOffset int    `mapstructure:"utc_offset_hours"`
	StartYear int    `mapstructure:"start_year"`
	EndYear   int    `mapstructure:"end_year"`
}

// PipelineConfig bounds concurrency inside one run.
type PipelineConfig struct {
	FileWorkers int `mapstructure:"file_workers"`
}

// AdminConfig controls the optional health/metrics endpoint. Empty Addr
// disables the server.
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLIMATE_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.batch_size", 1000)
	v.SetDefault("db.timeout_seconds", 30)
	v.SetDefault("db.hourly_table", "hourly_observation")
	v.SetDefault("db.legacy_table", "climate_hourly")
	v.SetDefault("db.daily_table", "daily_aggregate")
	v.SetDefault("db.station_table", "station_dimension")
	v.SetDefault("archive.url_template", "https://portal.inmet.gov.br/uploads/dadoshistoricos/{year}.zip")
	v.SetDefault("archive.data_dir", "data/inmet")
	v.SetDefault("archive.timeout_seconds", 60)
	v.SetDefault("archive.max_retries", 2)
	v.SetDefault("archive.backoff_initial_ms", 500)
	v.SetDefault("region.code", "PE")
	v.SetDefault("region.utc_offset_hours", -3)
	v.SetDefault("region.start_year", 1961)
	v.SetDefault("region.end_year", 0) // 0 = current year
	v.SetDefault("pipeline.file_workers", 4)
	v.SetDefault("admin.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. The database DSN
// is checked by the commands that need it, not here, so read-only commands
// can still run.
func (c Config) Validate() error {
	if c.Region.Code == "" {
		return fmt.Errorf("region.code must be set")
	}
	if c.Region.StartYear <= 0 {
		return fmt.Errorf("region.start_year must be > 0")
	}
	if c.Archive.URLTemplate == "" {
		return fmt.Errorf("archive.url_template must be set")
	}
	if !strings.Contains(c.Archive.URLTemplate, "{year}") {
		return fmt.Errorf("archive.url_template must contain a {year} placeholder")
	}
	if c.DB.BatchSize <= 0 {
		return fmt.Errorf("db.batch_size must be > 0")
	}
	if c.Pipeline.FileWorkers <= 0 {
		return fmt.Errorf("pipeline.file_workers must be > 0")
	}
	return nil
}

// FetchTimeout converts the archive timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Archive.TimeoutSecs) * time.Second
}

// DBTimeout converts the database timeout config into a duration.
func (c Config) DBTimeout() time.Duration {
	return time.Duration(c.DB.TimeoutSecs) * time.Second
}
