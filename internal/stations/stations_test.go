package stations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeStationFile(t *testing.T, dir, name, uf, code, station string) {
	t.Helper()
	content := "REGIAO:;NE\n" +
		"UF:;" + uf + "\n" +
		"ESTACAO:;" + station + "\n" +
		"CODIGO (WMO):;" + code + "\n" +
		"LATITUDE:;-8,05\n" +
		"LONGITUDE:;-34,95\n" +
		"ALTITUDE:;10,5\n" +
		"DATA DE FUNDACAO:;21/07/04\n" +
		"Data;Hora UTC;TEM_INS;\n" +
		"2020/01/01;0000;25,0;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestHarvestCollectsRegionStations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStationFile(t, dir, "INMET_NE_PE_A301_RECIFE.CSV", "PE", "A301", "RECIFE")
	writeStationFile(t, dir, "INMET_NE_PE_A366_PETROLINA.CSV", "PE", "A366", "PETROLINA")
	writeStationFile(t, dir, "INMET_NE_BA_A401_SALVADOR.CSV", "BA", "A401", "SALVADOR")

	stations, err := Harvest(dir, "PE", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, stations, 2, "foreign region stations excluded")

	codes := []string{stations[0].Code, stations[1].Code}
	require.ElementsMatch(t, []string{"A301", "A366"}, codes)

	for _, st := range stations {
		require.NotEmpty(t, st.Name)
		require.True(t, st.Latitude.Valid)
		require.False(t, st.CityID.Valid, "city mapping is maintained out of band")
	}
}

func TestHarvestDeduplicatesByCode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStationFile(t, dir, "INMET_NE_PE_A301_RECIFE_2019.CSV", "PE", "A301", "RECIFE")
	writeStationFile(t, dir, "INMET_NE_PE_A301_RECIFE_2020.CSV", "PE", "A301", "RECIFE")

	stations, err := Harvest(dir, "PE", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, stations, 1)
}

func TestHarvestFallsBackToFilenameCode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeStationFile(t, dir, "INMET_NE_PE_A322_CARUARU.CSV", "PE", "", "CARUARU")

	stations, err := Harvest(dir, "PE", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, stations, 1)
	require.Equal(t, "A322", stations[0].Code)
}
