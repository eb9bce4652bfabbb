package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/couchcryptid/forecast-parser/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Source lists, reads and disposes of forecast files.
type Source interface {
	List() ([]string, error)
	ReadLines(path string) ([]string, error)
	// Done removes a processed file. failed is true when the file could not
	// be decoded.
	Done(path string, failed bool) error
}

// Transformer turns the lines of one forecast file into records.
type Transformer interface {
	Transform(filename string, lines []string) ([]domain.ForecastRecord, error)
}

// Publisher writes all records of one file to the sink.
type Publisher interface {
	Publish(ctx context.Context, records []domain.ForecastRecord) error
}

// Store keeps the latest records per forecast type.
type Store interface {
	Put(records []domain.ForecastRecord, updatedAt time.Time)
}

// ErrPublish is returned by ScanOnce when the sink rejected a file. The file
// is left in place and the rest of the scan is skipped.
var ErrPublish = errors.New("publish failed")

// Pipeline orchestrates the scan-decode-publish loop.
type Pipeline struct {
	source      Source
	transformer Transformer
	publisher   Publisher
	store       Store
	clock       clockwork.Clock
	interval    time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	backoff     time.Duration
}

// New creates a Pipeline that scans the source every interval.
func New(s Source, t Transformer, p Publisher, st Store, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:      s,
		transformer: t,
		publisher:   p,
		store:       st,
		clock:       clock,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
		backoff:     initialBackoff,
	}
}

// CheckReadiness returns nil once the pipeline has completed a folder scan,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a folder scan yet")
	}
	return nil
}

// Run scans the folder immediately and then on every tick until the context
// is cancelled. It returns an error only when the station table is unusable,
// which no later scan can fix.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.ScanOnce(ctx); err != nil {
			if errors.Is(err, domain.ErrNoStations) {
				return err
			}
			if ctx.Err() == nil {
				p.logger.Warn("folder scan finished with errors", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// ScanOnce processes every file currently in the source, oldest first. A file
// that fails to decode is disposed of and the scan moves on; the returned
// error collects all such failures.
func (p *Pipeline) ScanOnce(ctx context.Context) error {
	files, err := p.source.List()
	if err != nil {
		return fmt.Errorf("list forecast files: %w", err)
	}

	var result *multierror.Error
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		err := p.processFile(ctx, path)
		if err == nil {
			continue
		}
		result = multierror.Append(result, err)
		if errors.Is(err, ErrPublish) || errors.Is(err, domain.ErrNoStations) {
			break
		}
	}

	p.ready.Store(true)
	return result.ErrorOrNil()
}

// processFile runs one read-transform-publish cycle for a single file.
func (p *Pipeline) processFile(ctx context.Context, path string) error {
	start := p.clock.Now()
	name := filepath.Base(path)

	lines, err := p.source.ReadLines(path)
	if err != nil {
		p.metrics.DecodeErrors.WithLabelValues("read").Inc()
		p.logger.Warn("read failed, will retry next scan", "file", name, "error", err)
		return err
	}

	records, err := p.transformer.Transform(name, lines)
	if err != nil {
		kind := errorKind(err)
		p.metrics.DecodeErrors.WithLabelValues(kind).Inc()
		if kind == "resolve" {
			p.logger.Error("station resolution failed", "file", name, "error", err)
			return err
		}
		p.logger.Warn("decode failed, discarding file", "file", name, "kind", kind, "error", err)
		if doneErr := p.source.Done(path, true); doneErr != nil {
			p.logger.Error("dispose of failed file", "file", name, "error", doneErr)
		}
		return err
	}

	if err := p.publisher.Publish(ctx, records); err != nil {
		if errors.Is(err, domain.ErrInvalidRecord) {
			// Retrying cannot fix the payload; move it out of the queue.
			p.metrics.DecodeErrors.WithLabelValues("invalid_record").Inc()
			p.logger.Warn("unpublishable records, discarding file", "file", name, "error", err)
			if doneErr := p.source.Done(path, true); doneErr != nil {
				p.logger.Error("dispose of failed file", "file", name, "error", doneErr)
			}
			return err
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish failed", "file", name, "records", len(records), "error", err)
		p.waitBackoff(ctx)
		return fmt.Errorf("%w: %s: %w", ErrPublish, name, err)
	}
	p.backoff = initialBackoff

	p.store.Put(records, p.clock.Now())
	if err := p.source.Done(path, false); err != nil {
		// The file is republished on the next scan.
		p.logger.Error("remove processed file", "file", name, "error", err)
	}

	p.metrics.FilesDecoded.Inc()
	p.metrics.RecordsPublished.Add(float64(len(records)))
	p.metrics.RecordsPerFile.Observe(float64(len(records)))
	p.metrics.FileProcessingDuration.Observe(p.clock.Since(start).Seconds())
	p.logger.Info("forecast file processed", "file", name, "records", len(records))
	return nil
}

// waitBackoff sleeps with the current backoff and advances it, unless the
// context is cancelled first.
func (p *Pipeline) waitBackoff(ctx context.Context) {
	if !sleepWithContext(ctx, p.clock, p.backoff) {
		return
	}
	p.backoff = sharedretry.NextBackoff(p.backoff, maxBackoff)
}

func errorKind(err error) string {
	var unknown *domain.UnknownParameterError
	switch {
	case errors.As(err, &unknown):
		return "unknown_parameter"
	case errors.Is(err, domain.ErrNoStations):
		return "resolve"
	default:
		return "decode"
	}
}

// sleepWithContext is retry.SleepWithContext on an injectable clock.
func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
