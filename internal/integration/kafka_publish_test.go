//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/ecotrack/climate-engine/internal/adapter/kafka"
	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/domain"
)

const testForecastTopic = "test-climate-forecasts"

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial kafka")
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedForecast holds a deserialized message read from the forecast topic.
type publishedForecast struct {
	RegionID    int64                `json:"region_id"`
	Granularity domain.Granularity   `json:"granularity"`
	Point       domain.ForecastPoint `json:"point"`
	PublishedAt time.Time            `json:"published_at"`
}

// TestPublisherRoundTrip verifies that forecast points published through the
// adapter arrive on the topic intact, keyed by region and in step order.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testForecastTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaForecastTopic: testForecastTopic,
		KafkaEnabled:       true,
	}

	publisher := kafkaadapter.NewPublisher(cfg, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = publisher.Close() })

	points := []domain.ForecastPoint{
		{Step: 1, Year: 2026, Month: 9, Label: "Sep 2026", Value: 17.2, Lower: 16.7, Upper: 17.7, Confidence: 96},
		{Step: 2, Year: 2026, Month: 10, Label: "Oct 2026", Value: 12.8, Lower: 12.3, Upper: 13.3, Confidence: 92},
		{Step: 3, Year: 2026, Month: 11, Label: "Nov 2026", Value: 7.5, Lower: 7.0, Upper: 8.0, Confidence: 88},
	}
	require.NoError(t, publisher.PublishForecast(ctx, 42, domain.GranularityMonthly, points))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testForecastTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range points {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read forecast message %d", i)

		assert.Equal(t, []byte("42"), msg.Key)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "monthly", headers["granularity"])
		assert.Equal(t, fmt.Sprintf("%d", want.Step), headers["step"])

		var got publishedForecast
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, int64(42), got.RegionID)
		assert.Equal(t, domain.GranularityMonthly, got.Granularity)
		assert.Equal(t, want, got.Point)
		assert.False(t, got.PublishedAt.IsZero())
	}
}
