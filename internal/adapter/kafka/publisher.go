// Package kafka publishes finished forecasts for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ecotrack/climate-engine/internal/config"
	"github.com/ecotrack/climate-engine/internal/domain"
)

// Publisher produces forecast messages to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured forecast topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaForecastTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishForecast serializes and publishes a region's forecast points in a
// single WriteMessages call for efficiency.
func (p *Publisher) PublishForecast(ctx context.Context, regionID int64, granularity domain.Granularity, points []domain.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(points))
	for i := range points {
		msg, err := serializeToMessage(regionID, granularity, points[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish forecast for region %d: %w", regionID, err)
	}
	p.logger.Info("forecast published",
		"region_id", regionID,
		"granularity", granularity,
		"points", len(points),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// forecastMessage is the wire shape of one published forecast point.
type forecastMessage struct {
	RegionID    int64                `json:"region_id"`
	Granularity domain.Granularity   `json:"granularity"`
	Point       domain.ForecastPoint `json:"point"`
	PublishedAt time.Time            `json:"published_at"`
}

// serializeToMessage marshals one forecast point into a Kafka message,
// keyed by region so a region's points stay in one partition.
func serializeToMessage(regionID int64, granularity domain.Granularity, point domain.ForecastPoint) (kafkago.Message, error) {
	data, err := json.Marshal(forecastMessage{
		RegionID:    regionID,
		Granularity: granularity,
		Point:       point,
		PublishedAt: domain.Clock().Now().UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast point: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(regionID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "granularity", Value: []byte(granularity)},
			{Key: "step", Value: []byte(strconv.Itoa(point.Step))},
		},
	}, nil
}
