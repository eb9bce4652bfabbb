//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/adapter/cache"
	"github.com/couchcryptid/forecast-parser/internal/adapter/filesystem"
	"github.com/couchcryptid/forecast-parser/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-parser/internal/config"
	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/couchcryptid/forecast-parser/internal/observability"
	"github.com/couchcryptid/forecast-parser/internal/pipeline"
	"github.com/couchcryptid/forecast-parser/internal/store"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-forecasts"

var testLookup = domain.ParameterLookup{
	"Temperature 2m": "temperature_2m",
	"Wind speed 10m": "wind_speed_10m",
}

var testStations = []domain.Station{
	{Lon: 10.0, Lat: 55.0},
	{Lon: 11.0, Lat: 57.0},
}

const neaFile = `# NEA Iteration = 2024010100
# Valid times: 2024010106 2024010112
# Temperature 2m
10.12 55.34 280.1 281.2
11.004 56.996 278.0 279.0
# Wind speed 10m
10.12 55.34 5.0 6.0
`

const badFile = `# NEA Iteration = 2024010100
# Valid times: 2024010106 2024010112
# Temperature 2m
10.12 55.34 280.1
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("forecast-parser-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedMessage struct {
	Key     string
	Headers map[string]string
	Body    map[string]any
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from forecast topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body), "unmarshal forecast record")
	return publishedMessage{Key: string(msg.Key), Headers: headers, Body: body}
}

func newConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestWriterPublish verifies that one Publish call lands every record of a
// file on the topic with a shared batch_id.
func TestWriterPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	file, series, err := domain.Decode(splitLines(neaFile), "ENetNEA_2024010100.txt", testLookup)
	require.NoError(t, err)
	records, err := domain.Emit(file, series, domain.NewStationTable(testStations))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, writer.Publish(ctx, records))

	consumer := newConsumer(t, broker)
	first := readPublished(ctx, t, consumer)
	second := readPublished(ctx, t, consumer)

	assert.Equal(t, "ENetNEA:10.00_55.00", first.Key)
	assert.Equal(t, "ENetNEA:11.00_57.00", second.Key)
	assert.Equal(t, first.Headers["batch_id"], second.Headers["batch_id"])
	assert.Equal(t, "ENetNEA", first.Headers["forecast_type"])
	assert.Equal(t, "2024010100", first.Headers["estimation_time"])
	_, err = time.Parse(time.RFC3339, first.Headers["published_at"])
	assert.NoError(t, err, "published_at should be valid RFC3339")

	assert.Equal(t, "ENetNEA_2024010100.txt", first.Body["estimation_source"])
	assert.Equal(t, []any{"2024010106", "2024010112"}, first.Body["forecast_time"])
	assert.Equal(t, []any{280.1, 281.2}, first.Body["temperature_2m"])
	assert.Equal(t, []any{5.0, 6.0}, first.Body["wind_speed_10m"])
}

// TestPipelineEndToEnd runs the folder scanner against a real broker: the
// valid file is published and removed, the malformed one quarantined.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	inbox := t.TempDir()
	quarantine := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "ENetNEA_2024010100.txt"), []byte(badFile), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "EnetEcm_2024010100.txt"), []byte(neaFile), 0o600))

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	resolver := cache.NewCachedResolver(domain.NewStationTable(testStations), 100, metrics)
	folder := filesystem.NewFolder(inbox, regexp.MustCompile(config.DefaultFileFilter), quarantine, discardLogger())
	latest := store.NewLatest()

	p := pipeline.New(folder, pipeline.NewTransformer(testLookup, resolver), writer, latest,
		clockwork.NewRealClock(), time.Second, discardLogger(), metrics)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newConsumer(t, broker)
	first := readPublished(ctx, t, consumer)
	second := readPublished(ctx, t, consumer)
	assert.Equal(t, "EnetEcm:10.00_55.00", first.Key)
	assert.Equal(t, "EnetEcm:11.00_57.00", second.Key)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(inbox, "EnetEcm_2024010100.txt"))
		return os.IsNotExist(err)
	}, 10*time.Second, 100*time.Millisecond, "published file is removed")
	assert.FileExists(t, filepath.Join(quarantine, "ENetNEA_2024010100.txt"))

	snap, ok := latest.Get("EnetEcm")
	require.True(t, ok)
	assert.Len(t, snap.Records, 2)

	pipelineCancel()
	require.NoError(t, <-errCh)
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
