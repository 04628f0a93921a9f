// Package events publishes signing process status changes to Kafka or
// Redpanda.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic receives signature events unless configured otherwise.
const DefaultTopic = "peopledoc.signatures"

// Type is the kind of event.
type Type string

const (
	// TypeSignatureStatus is emitted when a signing process reaches a
	// watched status.
	TypeSignatureStatus Type = "signature_status"
)

// Event is the envelope written to the topic.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	SignatureID string `json:"signature_id"`
	Status      string `json:"status"`
	ExternalID  string `json:"external_id,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Producer is the part of *kgo.Client used by Publisher.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Config holds the broker settings.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes events to one topic.
type Publisher struct {
	producer Producer
	topic    string
	log      hclog.Logger
	now      func() time.Time
}

// NewPublisher connects to the configured brokers.
func NewPublisher(cfg Config, log hclog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),
		kgo.RetryBackoffFn(func(tries int) time.Duration {
			d := time.Duration(tries) * 100 * time.Millisecond
			if d > 10*time.Second {
				d = 10 * time.Second
			}
			return d
		}),
		kgo.RequestRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return NewPublisherWithProducer(client, cfg.Topic, log), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(p Producer, topic string, log hclog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Publisher{
		producer: p,
		topic:    topic,
		log:      log.Named("events"),
		now:      time.Now,
	}
}

// SignatureStatus publishes the current status of a signing process.
// Events for the same signature share a partition key, so consumers see
// them in order.
func (p *Publisher) SignatureStatus(ctx context.Context, signatureID, status, externalID, title string) (*Event, error) {
	ev := &Event{
		ID:          uuid.New().String(),
		Type:        TypeSignatureStatus,
		Timestamp:   p.now().UTC(),
		SignatureID: signatureID,
		Status:      status,
		ExternalID:  externalID,
		Title:       title,
	}
	if err := p.Publish(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Publish writes ev and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, ev *Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(partitionKey(ev)),
		Value: value,
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("event published", "topic", p.topic, "id", ev.ID, "type", ev.Type)
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() {
	p.producer.Close()
}

func partitionKey(ev *Event) string {
	if ev.SignatureID != "" {
		return "signature:" + ev.SignatureID
	}
	return ev.ID
}
