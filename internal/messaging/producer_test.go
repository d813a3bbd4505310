package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Notify(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "order.changed"}

	change := domain.EventChange{
		Action:  domain.ActionCreated,
		EventID: "abc",
		Event:   &domain.Event{ID: "abc", Title: "Bday"},
		At:      time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Notify(context.Background(), change))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "abc", string(msg.Key))

	var got domain.EventChange
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, domain.ActionCreated, got.Action)
	assert.Equal(t, "Bday", got.Event.Title)

	assert.NotEmpty(t, NewMessageCarrier(&msg).Get("traceparent"))
}

func TestProducer_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("no brokers")}
	p := &Producer{writer: w, topic: "order.changed"}
	assert.Error(t, p.Notify(context.Background(), domain.EventChange{EventID: "x"}))
}

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{}
	c := NewMessageCarrier(&msg)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")
	assert.Equal(t, "3", c.Get("a"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
