package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

// KafkaPublisher pushes stock updates to the reporting topic, keyed by
// (product, warehouse) so per-key ordering survives partitioning.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, upd domain.StockUpdate) error {
	value, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal stock update: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(upd.ProductID + ":" + upd.WarehouseID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write stock update: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
