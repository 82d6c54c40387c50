// Package notify announces published rating partitions on Kafka.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/racerank/internal/pipeline"
)

// EventType is the type header of every event this package writes.
const EventType = "ratings.partition_published"

// PartitionPublished is the event payload.
type PartitionPublished struct {
	RunID       string    `json:"run_id"`
	Physics     string    `json:"physics"`
	Mode        string    `json:"mode"`
	Category    string    `json:"category"`
	Rows        int       `json:"rows"`
	PublishedAt time.Time `json:"published_at"`
}

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes one PartitionPublished event per publication.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a synchronous producer for topic on brokers.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}}
}

// Name implements pipeline.Mirror.
func (p *Producer) Name() string { return "kafka" }

// Mirror implements pipeline.Mirror. Events are keyed by partition so
// consumers see each partition's publications in order.
func (p *Producer) Mirror(ctx context.Context, pub pipeline.Publication) error {
	body, err := json.Marshal(PartitionPublished{
		RunID:       pub.RunID,
		Physics:     string(pub.Partition.Physics),
		Mode:        pub.Partition.Mode,
		Category:    pub.Partition.Category,
		Rows:        len(pub.Rows),
		PublishedAt: pub.PublishedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(pub.Partition.String()),
		Value: body,
		Time:  pub.PublishedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "run_id", Value: []byte(pub.RunID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", pub.Partition, err)
	}
	return nil
}

// Close releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
