package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/climate"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, Config{BatchSize: 2}, zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

// anyArgs builds a WithArgs list of n AnyArg matchers; pgxmock requires the
// expected and actual argument counts to match, so arg-agnostic expectations
// must still state the statement arity.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func expectProbe(mock pgxmock.PgxPoolIface, resolved string) {
	mock.ExpectQuery(`SELECT COALESCE\(to_regclass`).
		WithArgs("hourly_observation").
		WillReturnRows(pgxmock.NewRows([]string{"regclass"}).AddRow(resolved))
}

func sampleRecord(ts time.Time) climate.HourlyRecord {
	return climate.HourlyRecord{
		StationCode:    "A301",
		TimestampUTC:   ts,
		TimestampLocal: ts.Add(-3 * time.Hour),
		Temperature:    climate.Float(30),
		SourceFile:     "INMET_NE_PE_A301_X.CSV",
		SourceLine:     10,
	}
}

func TestLoadHourlyUsesRichTableWhenPresent(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	expectProbe(mock, "hourly_observation")
	mock.ExpectExec(`INSERT INTO hourly_observation`).
		WithArgs(anyArgs(29)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	stats, err := store.LoadHourly(context.Background(),
		[]climate.HourlyRecord{sampleRecord(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.Equal(t, "hourly_observation", stats.Table)
	require.Equal(t, int64(1), stats.Inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHourlyFallsBackToLegacyTable(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	expectProbe(mock, "")
	mock.ExpectExec(`INSERT INTO climate_hourly`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	stats, err := store.LoadHourly(context.Background(),
		[]climate.HourlyRecord{sampleRecord(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.Equal(t, "climate_hourly", stats.Table)
	require.Equal(t, int64(1), stats.Inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHourlyIsolatesRowFailures(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	expectProbe(mock, "hourly_observation")
	mock.ExpectExec(`INSERT INTO hourly_observation`).
		WithArgs(anyArgs(29)...).
		WillReturnError(errors.New("numeric overflow"))
	mock.ExpectExec(`INSERT INTO hourly_observation`).
		WithArgs(anyArgs(29)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	records := []climate.HourlyRecord{
		sampleRecord(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		sampleRecord(time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC)),
	}
	stats, err := store.LoadHourly(context.Background(), records)
	require.NoError(t, err, "row failures must not abort the load")
	require.Equal(t, int64(1), stats.Inserted)
	require.Equal(t, int64(1), stats.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHourlyNegotiatesSchemaOncePerRun(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	expectProbe(mock, "hourly_observation")
	mock.ExpectExec(`INSERT INTO hourly_observation`).
		WithArgs(anyArgs(29)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO hourly_observation`).
		WithArgs(anyArgs(29)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	_, err := store.LoadHourly(ctx,
		[]climate.HourlyRecord{sampleRecord(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	// Second call must not probe again.
	_, err = store.LoadHourly(ctx,
		[]climate.HourlyRecord{sampleRecord(time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// countingPool is a concurrency-safe dbPool stub; the ordered pgxmock
// expectations cannot model parallel callers.
type countingPool struct {
	mu     sync.Mutex
	probes int
}

func (p *countingPool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (p *countingPool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (p *countingPool) QueryRow(context.Context, string, ...any) pgx.Row {
	p.mu.Lock()
	p.probes++
	p.mu.Unlock()
	return regclassRow{value: "public.hourly_observation"}
}

func (p *countingPool) Close() {}

type regclassRow struct{ value string }

func (r regclassRow) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.value
	return nil
}

func TestLoadHourlyConcurrentCallersProbeOnce(t *testing.T) {
	t.Parallel()

	pool := &countingPool{}
	store, err := NewWithPool(pool, Config{}, zap.NewNop())
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(hour int) {
			defer wg.Done()
			_, err := store.LoadHourly(context.Background(),
				[]climate.HourlyRecord{sampleRecord(time.Date(2020, 1, 1, hour, 0, 0, 0, time.UTC))})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, pool.probes, "schema negotiation must happen once per run")
}

func TestLoadDailyUpsertConvergesOnRerun(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	row := climate.DailyAggregate{
		CityKey:      "2611606",
		Date:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TempMax:      climate.Float(32.1),
		HeatIndexMax: climate.Float(38.5),
		Risk:         climate.RiskHigh,
	}

	mock.ExpectExec(`(?s)INSERT INTO daily_aggregate.*ON CONFLICT \(city_id, date\) DO UPDATE`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`(?s)INSERT INTO daily_aggregate.*ON CONFLICT \(city_id, date\) DO UPDATE`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := context.Background()
	stats, err := store.LoadDaily(ctx, []climate.DailyAggregate{row})
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Inserted)

	stats, err = store.LoadDaily(ctx, []climate.DailyAggregate{row})
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDailyIsolatesRowFailures(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`(?s)INSERT INTO daily_aggregate.*ON CONFLICT \(city_id, date\) DO UPDATE`).
		WithArgs(anyArgs(13)...).
		WillReturnError(errors.New("numeric field overflow"))
	mock.ExpectExec(`(?s)INSERT INTO daily_aggregate.*ON CONFLICT \(city_id, date\) DO UPDATE`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rows := []climate.DailyAggregate{
		{CityKey: "2611606", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Risk: climate.RiskHigh},
		{CityKey: "2611606", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Risk: climate.RiskLow},
	}
	stats, err := store.LoadDaily(context.Background(), rows)
	require.NoError(t, err, "row failures must not abort the batch")
	require.Equal(t, "daily_aggregate", stats.Table)
	require.Equal(t, int64(1), stats.Inserted)
	require.Equal(t, int64(1), stats.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStationsPreservesExistingValues(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec(`(?s)INSERT INTO station_dimension.*COALESCE`).
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertStations(context.Background(), []climate.Station{{
		Code: "A301",
		Name: "RECIFE",
	}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStationCityMapSkipsUnmappedStations(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT station_code, city_id FROM station_dimension`).
		WillReturnRows(pgxmock.NewRows([]string{"station_code", "city_id"}).
			AddRow("A301", int64(2611606)))

	m, err := store.StationCityMap(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"A301": "2611606"}, m)
}

func TestYearsReadsDistinctYears(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT DISTINCT year FROM hourly_observation`).
		WillReturnRows(pgxmock.NewRows([]string{"year"}).AddRow(2020).AddRow(2021))

	years, err := store.Years(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{2020: {}, 2021: {}}, years)
}

func TestYearsFallsBackToLegacyTable(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT DISTINCT year FROM hourly_observation`).
		WillReturnError(errors.New(`relation "hourly_observation" does not exist`))
	mock.ExpectQuery(`SELECT DISTINCT EXTRACT\(YEAR FROM date\)`).
		WillReturnRows(pgxmock.NewRows([]string{"year"}).AddRow(2019))

	years, err := store.Years(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{2019: {}}, years)
}

func TestMigrateCreatesTables(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	for i := 0; i < 4; i++ {
		mock.ExpectExec(`CREATE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
