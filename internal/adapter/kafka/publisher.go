// Package kafka publishes search audit events to the audit topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/opencare/facility-finder-service/internal/config"
	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
)

// auditSchema versions the payload so downstream consumers can evolve.
const auditSchema = "search-audit/v1"

// Publisher produces search audit events to a Kafka topic.
// It implements search.AuditPublisher.
type Publisher struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured audit topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAuditTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, metrics: metrics, logger: logger}
}

// Publish serializes and writes one audit event. Failures are reported to the
// caller for logging; the search path treats them as best-effort.
func (p *Publisher) Publish(ctx context.Context, audit domain.SearchAudit) error {
	msg, err := serializeToMessage(audit)
	if err != nil {
		p.metrics.AuditPublishes.WithLabelValues("error").Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.AuditPublishes.WithLabelValues("error").Inc()
		return fmt.Errorf("write audit event: %w", err)
	}
	p.metrics.AuditPublishes.WithLabelValues("success").Inc()
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a SearchAudit into a Kafka message.
func serializeToMessage(audit domain.SearchAudit) (kafkago.Message, error) {
	data, err := json.Marshal(audit)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize audit event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(audit.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "schema", Value: []byte(auditSchema)},
			{Key: "recorded_at", Value: []byte(audit.RecordedAt.Format(time.RFC3339))},
		},
	}, nil
}
