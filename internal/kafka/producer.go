package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventHoldOpened    = "hold_opened"
	EventHoldConfirmed = "hold_confirmed"
	EventHoldExpired   = "hold_expired"
	EventHoldEnded     = "hold_ended"
)

// ReservationEvent is published on every transition of a pending booking or
// a flight hold.
type ReservationEvent struct {
	Type        string     `json:"type"`
	FlightID    string     `json:"flight_id"`
	Payer       string     `json:"payer"`
	Memo        uint64     `json:"memo,string"`
	Amount      uint64     `json:"amount"`
	NoOfPersons uint64     `json:"no_of_persons"`
	Status      string     `json:"status"`
	PaidAtBlock *uint64    `json:"paid_at_block,omitempty"`
	HoldEnds    *time.Time `json:"hold_ends,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	log     *zap.Logger
}

func NewProducer(brokers []string, log *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		log:     log.Named("kafka"),
	}
}

// Publish writes payload as JSON. Messages are keyed so that all events of a
// flight land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.log.Debug("published", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.log.Info("connected to kafka", zap.Int("partitions", len(partitions)))
	return nil
}
