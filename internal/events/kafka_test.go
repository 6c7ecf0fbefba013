package events

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var izhevsk = weather.Sample{
	ID:          3,
	City:        "Izhevsk",
	Country:     "Russia",
	Temperature: decimal.RequireFromString("11"),
	CreatedAt:   time.Date(2022, 9, 12, 2, 26, 0, 0, time.UTC),
}

func TestSerializeSample(t *testing.T) {
	msg, err := serializeSample(izhevsk)
	require.NoError(t, err)

	assert.Equal(t, []byte("Izhevsk"), msg.Key)
	assert.JSONEq(t, `{"id":3,"city":"Izhevsk","country":"Russia","temperature":"11.00","createdAt":"2022-09-12T02:26:00Z"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("temperature.sample"), msg.Headers[0].Value)
	assert.Equal(t, []byte("Russia"), msg.Headers[1].Value)
}

func TestPublishSample(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.PublishSample(context.Background(), izhevsk))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("Izhevsk"), w.msgs[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishSample_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &Publisher{writer: w}

	err := p.PublishSample(context.Background(), izhevsk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "temperature-samples")
	kw, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "temperature-samples", kw.Topic)
	assert.NotNil(t, kw.Addr)
}
