package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "PE", cfg.Region.Code)
	require.Equal(t, -3, cfg.Region.UTCOffset)
	require.Equal(t, 1961, cfg.Region.StartYear)
	require.Zero(t, cfg.Region.EndYear)
	require.Equal(t, 1000, cfg.DB.BatchSize)
	require.Equal(t, "hourly_observation", cfg.DB.HourlyTable)
	require.Equal(t, "climate_hourly", cfg.DB.LegacyTable)
	require.Equal(t, 4, cfg.Pipeline.FileWorkers)
	require.Contains(t, cfg.Archive.URLTemplate, "{year}")
	require.Empty(t, cfg.Admin.Addr, "admin server is opt-in")
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "region:\n  code: BA\n  start_year: 2000\ndb:\n  batch_size: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "BA", cfg.Region.Code)
	require.Equal(t, 2000, cfg.Region.StartYear)
	require.Equal(t, 50, cfg.DB.BatchSize)
	// Untouched keys keep their defaults.
	require.Equal(t, "daily_aggregate", cfg.DB.DailyTable)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing region", "region:\n  code: \"\"\n"},
		{"bad start year", "region:\n  start_year: 0\n"},
		{"template without placeholder", "archive:\n  url_template: https://example.com/fixed.zip\n"},
		{"zero batch size", "db:\n  batch_size: 0\n"},
		{"zero workers", "pipeline:\n  file_workers: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLIMATE_ETL_REGION_CODE", "RN")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "RN", cfg.Region.Code)
}
