//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/rainfall-verification/internal/adapter/arraystore"
	"github.com/couchcryptid/rainfall-verification/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/domain"
	"github.com/couchcryptid/rainfall-verification/internal/observability"
	"github.com/couchcryptid/rainfall-verification/internal/pipeline"
)

const testSummaryTopic = "test-summaries"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("rainverif-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	brokers, err := c.Brokers(ctx)
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
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestVerifyStagePublishesSummaries runs the verify stage with the Kafka
// writer as a sink and reads every summary row back from the topic.
func TestVerifyStagePublishesSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: testSummaryTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	dir := t.TempDir()
	store := arraystore.New(dir+"/counts", dir+"/summary")
	day0 := time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
	var bases []time.Time
	for i := range 4 {
		d := day0.AddDate(0, 0, i)
		bases = append(bases, d)
		rec := domain.ExceedanceRecord{
			MemberCount: []int{4, 3, 2, 1, 0, (i + 1) % 5},
			ObsFlag:     []int{1, 0, 1, 0, 0, i % 2},
		}
		k := domain.CountKey{Accumulation: 12, System: "ENS", Threshold: 10, BaseTime: d, Step: 12}
		require.NoError(t, store.SaveCounts(k, rec))
	}

	stage := pipeline.NewVerifyStage(store, pipeline.VerifySettings{
		RunID:        "integration",
		Accumulation: 12,
		Systems:      []domain.ForecastSystem{{Name: "ENS", Members: 4, Kind: domain.Cumulative}},
		Thresholds:   []float64{10},
		BaseTimes:    bases,
		LeadTimes:    []int{12, 18},
		Repetitions:  10,
		Seed:         1,
		Workers:      2,
		Level:        95,
	}, discardLogger(), observability.NewMetricsForTesting(), pipeline.RowSinkFunc(writer.Publish))
	require.NoError(t, stage.Run(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := make(map[string]domain.SummaryRow)
	for len(got) < 6 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read summary message")

		row, err := kafka.DecodeMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, kafka.MessageKey(row), string(msg.Key))
		got[string(msg.Key)] = row
	}

	aroc := got["ENS|10|AROCt|012"]
	assert.Equal(t, "integration", aroc.RunID)
	assert.Equal(t, 4, aroc.ValidDays)
	assert.False(t, math.IsNaN(aroc.Original))

	// Step 18 has no count arrays: its values travel as null and decode to NaN.
	missing := got["ENS|10|BSrel|018"]
	assert.Equal(t, 0, missing.ValidDays)
	assert.True(t, math.IsNaN(missing.Original))
	assert.True(t, math.IsNaN(missing.Lower))
}
