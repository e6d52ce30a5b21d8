package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// RateUpdateEvent is the downstream message shape, one event per aggregation.
type RateUpdateEvent struct {
	ID                    string          `json:"id"`
	Pair                  string          `json:"pair"`
	Base                  string          `json:"base"`
	Target                string          `json:"target"`
	Rate                  decimal.Decimal `json:"rate"`
	ConfidenceLevel       string          `json:"confidence_level"`
	ContributingProviders []string        `json:"contributing_providers"`
	PrimaryUsed           bool            `json:"primary_used"`
	Timestamp             time.Time       `json:"timestamp"`
}

func NewRateUpdateEvent(rate core.AggregatedRate) RateUpdateEvent {
	return RateUpdateEvent{
		ID:                    uuid.NewString(),
		Pair:                  rate.Pair.String(),
		Base:                  rate.Pair.Base,
		Target:                rate.Pair.Target,
		Rate:                  rate.Rate,
		ConfidenceLevel:       rate.ConfidenceLevel,
		ContributingProviders: rate.Providers,
		PrimaryUsed:           rate.PrimaryUsed,
		Timestamp:             rate.Timestamp,
	}
}

// KafkaRatePublisher streams every aggregated rate to a kafka topic, keyed by
// pair so consumers see per pair ordering.
type KafkaRatePublisher struct {
	writer *kafka.Writer
	logger hclog.Logger
}

var _ core.RateSink = (*KafkaRatePublisher)(nil)

func NewKafkaRatePublisher(config core.HistoryConfig, logger hclog.Logger) *KafkaRatePublisher {
	return &KafkaRatePublisher{
		writer: &kafka.Writer{
			Addr:        kafka.TCP(config.KafkaBrokers...),
			Topic:       config.KafkaTopic,
			Balancer:    &kafka.LeastBytes{},
			Compression: kafka.Snappy,
		},
		logger: logger.Named("kafka_rate_publisher"),
	}
}

func (p *KafkaRatePublisher) SubmitRate(ctx context.Context, rate core.AggregatedRate) error {
	event := NewRateUpdateEvent(rate)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rate event. err: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Pair),
		Value: value,
		Time:  event.Timestamp,
	}); err != nil {
		return fmt.Errorf("failed to publish rate event. err: %w", err)
	}

	p.logger.Debug("rate event published", "pair", event.Pair, "id", event.ID)

	return nil
}

func (p *KafkaRatePublisher) Close() error {
	return p.writer.Close()
}
