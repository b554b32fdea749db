package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	OrderPlaced        = "order_placed"
	PaymentSettled     = "payment_settled"
	OrderCancelled     = "order_cancelled"
	OrderStatusChanged = "order_status_changed"
)

type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	OrderID    uint            `json:"order_id"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, orderID uint, payload any) error
	Close() error
}

func NewEnvelope(producer, eventType string, orderID uint, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Producer:   producer,
		OrderID:    orderID,
		Payload:    raw,
	}, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes keyed by order id, so every event of one
// order lands on the same partition in order.
type KafkaPublisher struct {
	w        messageWriter
	producer string
	timeout  time.Duration
}

func NewKafkaPublisher(brokers []string, topic, producer string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		producer: producer,
		timeout:  5 * time.Second,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, orderID uint, payload any) error {
	env, err := NewEnvelope(p.producer, eventType, orderID, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(orderID), 10)),
		Value: data,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, uint, any) error { return nil }
func (Nop) Close() error                                     { return nil }

// Memory keeps envelopes in process for inspection.
type Memory struct {
	mu     sync.Mutex
	events []Envelope
}

func (m *Memory) Publish(_ context.Context, eventType string, orderID uint, payload any) error {
	env, err := NewEnvelope("memory", eventType, orderID, payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.events = append(m.events, env)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.events))
	copy(out, m.events)
	return out
}

// Count returns how many events of eventType were published for orderID.
func (m *Memory) Count(eventType string, orderID uint) int {
	n := 0
	for _, e := range m.Events() {
		if e.EventType == eventType && e.OrderID == orderID {
			n++
		}
	}
	return n
}
