package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
)

const DefaultTopic = "harvest_wallet_events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ledger events to a single topic, keyed by wallet so
// events of one wallet stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func newPublisherWithWriter(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode ledger event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.WalletID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(uuid.NewString())},
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}
	logger.ExternalServiceCall("kafka", "WriteMessages", "topic", p.topic, "type", event.Type)
	err = p.writer.WriteMessages(ctx, msg)
	logger.ExternalServiceResult("kafka", "WriteMessages", err, "topic", p.topic)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
