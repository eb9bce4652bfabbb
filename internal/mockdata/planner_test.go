package mockdata

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const neaTemplate = "# NEA Iteration = 2020010100\n# Valid times: 2020010106 2020010112\n# Temperature 2m\n10.12 55.34 280.1 281.2"

const conwxTemplate = "#date=2020010100\n#minlen=1\n#maxlen=2\n# temperature 2m\n1 2 10.12 55.34 10.0 11.0"

func setup(t *testing.T, now time.Time) (*Planner, *clockwork.FakeClock, string, *observability.Metrics) {
	t.Helper()
	templates := t.TempDir()
	output := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(templates, "ENetNEA_2020010100.txt"), []byte(neaTemplate), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "ConWx_prog_2020010100_048.dat"), []byte(conwxTemplate), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "notes.txt"), []byte("x"), 0o600))

	clock := clockwork.NewFakeClockAt(now)
	metrics := observability.NewMetricsForTesting()
	return NewPlanner(templates, output, DefaultFamilies, clock, slog.Default(), metrics), clock, output, metrics
}

func readOutput(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestGenerate_DueFamily(t *testing.T) {
	// 07:30 is an ENetNEA delivery hour but not a ConWx one.
	p, _, output, metrics := setup(t, time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC))

	written, err := p.Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{"ENetNEA_2024031004.txt"}, written)

	content := readOutput(t, output, "ENetNEA_2024031004.txt")
	lines := strings.Split(content, "\n")
	assert.Equal(t, "# NEA Iteration = 2024031004", lines[0])
	assert.Equal(t, "# Valid times: 2024031010 2024031016", lines[1])
	assert.Equal(t, "10.12 55.34 280.1 281.2", lines[3])

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MockFilesGenerated), 0)
}

func TestGenerate_ConWxFamily(t *testing.T) {
	p, _, output, _ := setup(t, time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC))

	written, err := p.Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{"ConWx_prog_2024031007_048.dat"}, written)
	assert.True(t, strings.HasPrefix(readOutput(t, output, written[0]), "#date=2024031007\n#minlen=1"))
}

func TestGenerate_NothingDue(t *testing.T) {
	p, _, output, _ := setup(t, time.Date(2024, 3, 10, 5, 30, 0, 0, time.UTC))

	written, err := p.Generate()
	require.NoError(t, err)
	assert.Empty(t, written)

	entries, err := os.ReadDir(output)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerate_BadTemplateDoesNotStopOthers(t *testing.T) {
	p, _, output, _ := setup(t, time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC))
	// 08:00 is due for EnetEcm and ConWx _180.
	require.NoError(t, os.WriteFile(filepath.Join(p.templateDir, "EnetEcm_2020010100.txt"), []byte("no base here\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(p.templateDir, "ConWx_prog_2020010100_180.dat"), []byte(strings.ReplaceAll(conwxTemplate, "048", "180")), 0o600))

	written, err := p.Generate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EnetEcm_2020010100.txt")
	assert.Equal(t, []string{"ConWx_prog_2024031001_180.dat"}, written)
	assert.FileExists(t, filepath.Join(output, "ConWx_prog_2024031001_180.dat"))
}

func TestGenerate_MissingTemplateDir(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewPlanner(filepath.Join(t.TempDir(), "missing"), t.TempDir(), DefaultFamilies, clock, slog.Default(), observability.NewMetricsForTesting())

	_, err := p.Generate()
	require.Error(t, err)
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		now, want time.Time
	}{
		{time.Date(2024, 3, 10, 10, 10, 0, 0, time.UTC), time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC)},
		{time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC), time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC)},
		{time.Date(2024, 3, 10, 23, 45, 0, 0, time.UTC), time.Date(2024, 3, 11, 0, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextRun(tt.now), tt.now.String())
	}
}

func TestRun_GeneratesEveryHour(t *testing.T) {
	p, clock, output, metrics := setup(t, time.Date(2024, 3, 10, 6, 50, 0, 0, time.UTC))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	// 06:50: ConWx _048 is due immediately.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.FileExists(t, filepath.Join(output, "ConWx_prog_2024031001_048.dat"))

	// Next run at 07:30: ENetNEA is due.
	clock.Advance(40 * time.Minute)
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(output, "ENetNEA_2024031004.txt"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MockFilesGenerated), 0)

	cancel()
	require.NoError(t, <-errc)
}
