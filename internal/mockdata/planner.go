// Package mockdata produces synthetic forecast files from templates, on the
// schedule the real providers deliver them, so the service can run without a
// provider feed.
package mockdata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/adapter/filesystem"
	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/couchcryptid/forecast-parser/internal/observability"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
)

const stampPlaceholder = "<timestamp>"

// Family describes one provider's delivery pattern.
type Family struct {
	// Template matches template file names of this family.
	Template *regexp.Regexp
	// Filename is the output name; <timestamp> is replaced with the new base.
	Filename string
	// Delay is how long after its base time a file arrives.
	Delay time.Duration
	// Hours lists the UTC hours at which a file arrives.
	Hours []int
}

// DefaultFamilies are the forecast providers known to the parser.
var DefaultFamilies = []Family{
	{
		Template: regexp.MustCompile(`^ENetNEA_\d{10}\.txt$`),
		Filename: "ENetNEA_<timestamp>.txt",
		Delay:    3 * time.Hour,
		Hours:    []int{1, 4, 7, 10, 13, 16, 19, 22},
	},
	{
		Template: regexp.MustCompile(`^EnetEcm_\d{10}\.txt$`),
		Filename: "EnetEcm_<timestamp>.txt",
		Delay:    7 * time.Hour,
		Hours:    []int{8, 20},
	},
	{
		Template: regexp.MustCompile(`^ConWx_prog_\d{10}_048\.dat$`),
		Filename: "ConWx_prog_<timestamp>_048.dat",
		Delay:    5 * time.Hour,
		Hours:    []int{0, 6, 12, 18},
	},
	{
		Template: regexp.MustCompile(`^ConWx_prog_\d{10}_180\.dat$`),
		Filename: "ConWx_prog_<timestamp>_180.dat",
		Delay:    7 * time.Hour,
		Hours:    []int{2, 8, 14, 20},
	},
}

// Planner writes rebased copies of templates into the forecast folder.
type Planner struct {
	templateDir string
	outputDir   string
	families    []Family
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewPlanner creates a Planner for the given families.
func NewPlanner(templateDir, outputDir string, families []Family, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Planner {
	return &Planner{
		templateDir: templateDir,
		outputDir:   outputDir,
		families:    families,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run generates files immediately and then at minute 30 of every following
// hour until the context is cancelled.
func (p *Planner) Run(ctx context.Context) error {
	p.logger.Info("mock data generation started", "templates", p.templateDir, "output", p.outputDir)
	for {
		if _, err := p.Generate(); err != nil {
			p.logger.Warn("mock data generation finished with errors", "error", err)
		}

		wait := p.clock.Until(nextRun(p.clock.Now()))
		select {
		case <-ctx.Done():
			p.logger.Info("mock data generation stopping", "reason", ctx.Err())
			return nil
		case <-p.clock.After(wait):
		}
	}
}

// nextRun is minute 30 of the hour after now.
func nextRun(now time.Time) time.Time {
	return now.Truncate(time.Hour).Add(time.Hour + 30*time.Minute)
}

// Generate writes one file for every template whose family is due in the
// current hour and returns the names written. Template failures are collected
// and do not stop the other templates.
func (p *Planner) Generate() ([]string, error) {
	now := p.clock.Now().UTC()

	entries, err := os.ReadDir(p.templateDir)
	if err != nil {
		return nil, fmt.Errorf("list templates %s: %w", p.templateDir, err)
	}

	var (
		written []string
		result  *multierror.Error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		for _, fam := range p.families {
			if !fam.Template.MatchString(e.Name()) || !slices.Contains(fam.Hours, now.Hour()) {
				continue
			}
			name, err := p.generate(filepath.Join(p.templateDir, e.Name()), fam, now)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			written = append(written, name)
		}
	}
	return written, result.ErrorOrNil()
}

func (p *Planner) generate(template string, fam Family, now time.Time) (string, error) {
	lines, err := filesystem.ReadLines(template)
	if err != nil {
		return "", err
	}

	t0 := now.Add(-fam.Delay).Truncate(time.Hour)
	rebased, err := domain.Rebase(lines, t0, domain.DefaultMaxForecastHours)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(template), err)
	}

	name := strings.Replace(fam.Filename, stampPlaceholder, t0.Format(domain.TimestampLayout), 1)
	if err := filesystem.WriteLines(p.outputDir, name, rebased); err != nil {
		return "", err
	}

	p.metrics.MockFilesGenerated.Inc()
	p.logger.Info("mock forecast file created", "file", name, "template", filepath.Base(template))
	return name, nil
}
