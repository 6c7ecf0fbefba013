package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per persisted sample.
// It implements weather.SamplePublisher.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w}
}

// sampleEvent is the wire form of a sample.
type sampleEvent struct {
	ID          int64  `json:"id"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Temperature string `json:"temperature"`
	CreatedAt   string `json:"createdAt"`
}

func (p *Publisher) PublishSample(ctx context.Context, sample weather.Sample) error {
	msg, err := serializeSample(sample)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish sample %d: %w", sample.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeSample marshals a sample into a message keyed by city.
func serializeSample(sample weather.Sample) (kafkago.Message, error) {
	data, err := json.Marshal(sampleEvent{
		ID:          sample.ID,
		City:        sample.City,
		Country:     sample.Country,
		Temperature: sample.Temperature.StringFixed(weather.TemperaturePlaces),
		CreatedAt:   sample.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sample: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sample.City),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("temperature.sample")},
			{Key: "country", Value: []byte(sample.Country)},
		},
	}, nil
}

var _ weather.SamplePublisher = (*Publisher)(nil)
