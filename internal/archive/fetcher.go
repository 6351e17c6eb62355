// Package archive retrieves and unpacks the yearly observation archives.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// FetchError wraps a transport failure for one period's archive. The
// orchestrator treats each period as independently retryable and skips the
// period once retries are exhausted.
type FetchError struct {
	Year int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch archive for %d: %v", e.Year, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetcherConfig controls archive retrieval.
type FetcherConfig struct {
	// URLTemplate is the remote endpoint with a {year} placeholder.
	URLTemplate string
	// DestDir receives the downloaded zip files.
	DestDir string
	// Timeout bounds one HTTP attempt.
	Timeout time.Duration
	// MaxRetries bounds retry attempts beyond the first try.
	MaxRetries int
	// BackoffInitial is the first retry delay.
	BackoffInitial time.Duration
}

// Fetcher downloads one compressed archive per reporting period.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
	logger *zap.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Fetch downloads the archive for one year into the destination directory and
// returns the local path. Transient failures are retried with exponential
// backoff; exhaustion yields a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, year int) (string, error) {
	url := strings.ReplaceAll(f.cfg.URLTemplate, "{year}", strconv.Itoa(year))
	dest := filepath.Join(f.cfg.DestDir, fmt.Sprintf("%d.zip", year))

	if err := os.MkdirAll(f.cfg.DestDir, 0o755); err != nil {
		return "", &FetchError{Year: year, Err: err}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(f.cfg.BackoffInitial),
		), uint64(f.cfg.MaxRetries)),
		ctx,
	)

	attempt := 0
	op := func() error {
		attempt++
		if err := f.download(ctx, url, dest); err != nil {
			f.logger.Warn("archive download attempt failed",
				zap.Int("year", year), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return "", &FetchError{Year: year, Err: err}
	}

	f.logger.Info("archive downloaded", zap.Int("year", year), zap.String("path", dest))
	return dest, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		// Client errors will not improve on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return backoff.Permanent(err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// IsFetchError reports whether err wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
