// Package pipeline composes catalog, fetcher, normalizer, heat metrics,
// aggregator and loader into full and incremental runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/aggregate"
	"github.com/heatisland/climate-etl/internal/archive"
	"github.com/heatisland/climate-etl/internal/climate"
	"github.com/heatisland/climate-etl/internal/heatmetrics"
	"github.com/heatisland/climate-etl/internal/metrics"
	"github.com/heatisland/climate-etl/internal/normalize"
	"github.com/heatisland/climate-etl/internal/progress"
	"github.com/heatisland/climate-etl/internal/stations"
	"github.com/heatisland/climate-etl/internal/store"
)

// ArchiveSource fetches one compressed archive per period.
type ArchiveSource interface {
	Fetch(ctx context.Context, year int) (string, error)
}

// Catalog decides which periods a run should process.
type Catalog interface {
	ExpectedYears(start, end int) []int
	MissingYears(ctx context.Context, target int) []int
}

// Store is the persistence surface the pipeline depends on.
type Store interface {
	Migrate(ctx context.Context) error
	LoadHourly(ctx context.Context, records []climate.HourlyRecord) (store.LoadStats, error)
	LoadDaily(ctx context.Context, rows []climate.DailyAggregate) (store.LoadStats, error)
	UpsertStations(ctx context.Context, sts []climate.Station) error
	StationCityMap(ctx context.Context) (map[string]string, error)
}

// Config controls pipeline execution.
type Config struct {
	Region      string
	FileWorkers int
}

// Summary is the outcome of one run.
type Summary struct {
	RunID            uuid.UUID
	PeriodsProcessed int64
	PeriodsSkipped   int64
	FilesProcessed   int64
	FilesSkipped     int64
	RowsNormalized   int64
	RowsDropped      int64
	RowsLoaded       int64
	RowLoadErrors    int64
	DailyUpserts     int64
}

// fileOutcome is what one worker produced for one file.
type fileOutcome struct {
	file    string
	records []climate.HourlyRecord
	stats   store.LoadStats
	dropped int64
	skip    string
}

// Pipeline runs the ETL. Collaborators are injected; the unpack and harvest
// hooks default to the real implementations and exist for tests.
type Pipeline struct {
	cfg        Config
	source     ArchiveSource
	catalog    Catalog
	store      Store
	normalizer *normalize.Normalizer
	hub        *progress.Hub
	metrics    *metrics.Metrics
	logger     *zap.Logger

	unpack   func(zipPath string) (string, error)
	listCSVs func(dir string) ([]string, error)
	harvest  func(dir, region string, logger *zap.Logger) ([]climate.Station, error)
}

// New wires a Pipeline from its collaborators.
func New(cfg Config, source ArchiveSource, cat Catalog, st Store,
	norm *normalize.Normalizer, hub *progress.Hub, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if cfg.FileWorkers <= 0 {
		cfg.FileWorkers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		catalog:    cat,
		store:      st,
		normalizer: norm,
		hub:        hub,
		metrics:    m,
		logger:     logger,
		unpack:     archive.Unpack,
		listCSVs:   archive.ListCSVs,
		harvest:    stations.Harvest,
	}
}

// RunFull processes every expected period in the configured range.
func (p *Pipeline) RunFull(ctx context.Context, start, end int) (Summary, error) {
	return p.run(ctx, p.catalog.ExpectedYears(start, end))
}

// RunIncremental processes only periods not yet present in the store. A
// non-zero target restricts the run to that single period.
func (p *Pipeline) RunIncremental(ctx context.Context, target int) (Summary, error) {
	return p.run(ctx, p.catalog.MissingYears(ctx, target))
}

func (p *Pipeline) run(ctx context.Context, years []int) (Summary, error) {
	summary := Summary{RunID: uuid.New()}
	p.metrics.PipelineRunning.Inc()
	defer p.metrics.PipelineRunning.Dec()

	p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StageRunStart,
		Note: fmt.Sprintf("%d periods", len(years))})
	p.logger.Info("run starting",
		zap.String("run_id", summary.RunID.String()), zap.Ints("years", years))

	if err := p.store.Migrate(ctx); err != nil {
		return summary, fmt.Errorf("prepare schema: %w", err)
	}

	cityMap, err := p.store.StationCityMap(ctx)
	if err != nil {
		p.logger.Warn("station dimension unavailable, grouping by station code", zap.Error(err))
		cityMap = nil
	}

	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StagePeriodStart, Period: year})

		loaded, err := p.processPeriod(ctx, &summary, year, cityMap)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			// One bad period never blocks the rest of the run.
			summary.PeriodsSkipped++
			p.metrics.PeriodsSkipped.WithLabelValues(periodSkipReason(err)).Inc()
			p.logger.Error("period failed, continuing",
				zap.Int("year", year), zap.Error(err))
			p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StagePeriodError,
				Period: year, Note: err.Error()})
			continue
		}
		summary.PeriodsProcessed++
		p.metrics.PeriodsProcessed.Inc()
		p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StagePeriodDone,
			Period: year, Rows: loaded})
	}

	p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StageRunDone,
		Rows: summary.RowsLoaded})
	p.logger.Info("run finished",
		zap.String("run_id", summary.RunID.String()),
		zap.Int64("periods", summary.PeriodsProcessed),
		zap.Int64("rows_loaded", summary.RowsLoaded),
		zap.Int64("daily_upserts", summary.DailyUpserts))
	return summary, nil
}

// processPeriod handles one year end to end and returns the number of hourly
// rows loaded for it.
func (p *Pipeline) processPeriod(ctx context.Context, summary *Summary, year int, cityMap map[string]string) (int64, error) {
	zipPath, err := p.source.Fetch(ctx, year)
	if err != nil {
		return 0, err
	}
	dir, err := p.unpack(zipPath)
	if err != nil {
		return 0, err
	}

	if sts, err := p.harvest(dir, p.cfg.Region, p.logger); err != nil {
		p.logger.Warn("station harvest failed", zap.Int("year", year), zap.Error(err))
	} else if len(sts) > 0 {
		if err := p.store.UpsertStations(ctx, sts); err != nil {
			p.logger.Warn("station dimension update failed", zap.Int("year", year), zap.Error(err))
		}
	}

	files, err := p.listCSVs(dir)
	if err != nil {
		return 0, err
	}

	enriched, loaded := p.processFiles(ctx, summary, year, files)
	if err := ctx.Err(); err != nil {
		return loaded, err
	}

	daily := aggregate.New(cityMap, p.logger).Daily(enriched)
	dailyStats, err := p.store.LoadDaily(ctx, daily)
	if err != nil {
		return loaded, fmt.Errorf("load daily aggregates: %w", err)
	}
	summary.DailyUpserts += dailyStats.Inserted
	summary.RowLoadErrors += dailyStats.Failed
	p.metrics.DailyUpserts.Add(float64(dailyStats.Inserted))
	p.metrics.RowLoadErrors.Add(float64(dailyStats.Failed))
	return loaded, nil
}

// processFiles fans the period's files out over a bounded worker pool. Each
// file is normalized, enriched and loaded into the hourly layer; the enriched
// records are collected for the period's daily aggregation.
func (p *Pipeline) processFiles(ctx context.Context, summary *Summary, year int, files []string) ([]climate.HourlyRecord, int64) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enriched []climate.HourlyRecord
		loaded   int64
	)
	jobs := make(chan string)

	for w := 0; w < p.cfg.FileWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				out := p.processFile(ctx, file)

				mu.Lock()
				summary.RowsDropped += out.dropped
				if out.skip != "" {
					summary.FilesSkipped++
				} else {
					summary.FilesProcessed++
					summary.RowsNormalized += int64(len(out.records))
					summary.RowsLoaded += out.stats.Inserted
					summary.RowLoadErrors += out.stats.Failed
					loaded += out.stats.Inserted
					enriched = append(enriched, out.records...)
				}
				mu.Unlock()

				name := filepath.Base(out.file)
				if out.skip != "" {
					p.metrics.FilesSkipped.WithLabelValues(out.skip).Inc()
					p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StageFileSkip,
						Period: year, File: name, Note: out.skip})
				} else {
					p.emit(progress.Event{RunID: summary.RunID, Stage: progress.StageFileDone,
						Period: year, File: name, Rows: out.stats.Inserted})
				}
			}
		}()
	}

	for _, file := range files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return enriched, loaded
		case jobs <- file:
		}
	}
	close(jobs)
	wg.Wait()
	return enriched, loaded
}

func (p *Pipeline) processFile(ctx context.Context, file string) fileOutcome {
	started := time.Now()

	res, err := p.normalizer.NormalizeFile(file)
	if err != nil {
		p.logger.Warn("file unreadable, skipping", zap.String("file", file), zap.Error(err))
		return fileOutcome{file: file, skip: "unreadable"}
	}
	out := fileOutcome{file: file, dropped: int64(res.Dropped)}
	p.metrics.RowsDropped.Add(float64(res.Dropped))
	if res.SkipReason != "" {
		out.skip = res.SkipReason
		return out
	}

	heatmetrics.Enrich(res.Records)
	stats, err := p.store.LoadHourly(ctx, res.Records)
	if err != nil {
		p.logger.Error("hourly load failed for file", zap.String("file", file), zap.Error(err))
		out.skip = "load"
		return out
	}

	out.records = res.Records
	out.stats = stats
	p.metrics.RowsNormalized.Add(float64(len(res.Records)))
	p.metrics.RowsLoaded.Add(float64(stats.Inserted))
	p.metrics.RowLoadErrors.Add(float64(stats.Failed))
	p.metrics.FilesProcessed.Inc()
	p.metrics.FileDuration.Observe(time.Since(started).Seconds())
	return out
}

func (p *Pipeline) emit(e progress.Event) {
	if p.hub == nil {
		return
	}
	e.TS = time.Now().UTC()
	p.hub.Emit(e)
}

func periodSkipReason(err error) string {
	if archive.IsFetchError(err) {
		return "fetch"
	}
	if errors.Is(err, archive.ErrCorruptArchive) {
		return "corrupt"
	}
	return "other"
}
