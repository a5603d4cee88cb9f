// Package events publishes upload lifecycle events to Kafka for downstream
// consumers (search indexers, pricing caches). Publishing is best-effort:
// a broker outage is logged and the pipeline carries on.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/supplysync/pricelist/internal/catalog"
)

// Publisher writes upload events to a Kafka topic. The zero value is not
// usable; construct with NewPublisher. A nil *Publisher is a no-op sink,
// so callers can wire it unconditionally.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka-backed event sink.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// UploadMerged publishes a merge-completed event.
func (p *Publisher) UploadMerged(ctx context.Context, e catalog.UploadEvent) {
	p.publish(ctx, "upload.merged", e)
}

// UploadFailed publishes a validation-failed event.
func (p *Publisher) UploadFailed(ctx context.Context, e catalog.UploadEvent) {
	p.publish(ctx, "upload.failed", e)
}

func (p *Publisher) publish(ctx context.Context, kind string, e catalog.UploadEvent) {
	if p == nil {
		return
	}

	body, err := json.Marshal(struct {
		Kind string `json:"kind"`
		catalog.UploadEvent
	}{Kind: kind, UploadEvent: e})
	if err != nil {
		p.logger.Error("encode upload event", "kind", kind, "error", err)
		return
	}

	// Events are keyed by upload id so per-upload ordering is preserved.
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.UploadID.String()),
		Value: body,
	})
	if err != nil {
		p.logger.Error("publish upload event",
			"kind", kind, "uploadId", e.UploadID, "error", err)
		return
	}
	p.logger.Debug("published upload event", "kind", kind, "uploadId", e.UploadID)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
