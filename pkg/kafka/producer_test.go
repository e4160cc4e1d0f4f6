package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/agromart/marketplace/pkg/logger"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("product.created", "product", "p1", "marketplace", map[string]string{"name": "Basmati Rice"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 1, ev.Version)
	assert.JSONEq(t, `{"name":"Basmati Rice"}`, string(ev.Data))

	_, err = NewEvent("x", "y", "z", "s", make(chan int))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "order.placed", Topic("order", "placed"))
}

func TestProducer_Publish(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}

	ev, err := NewEvent("product.updated", "product", "p1", "marketplace", map[string]int{"quantity": 3})
	require.NoError(t, err)
	ev.CorrelationID = "corr-1"

	before := testutil.ToFloat64(published.WithLabelValues("product.updated"))
	require.NoError(t, p.Publish(ctx, "product.updated", ev))
	assert.Equal(t, before+1, testutil.ToFloat64(published.WithLabelValues("product.updated")))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "product.updated", msg.Topic)
	assert.Equal(t, []byte("p1"), msg.Key)

	carrier := headerCarrier(msg.Headers)
	assert.Equal(t, "product.updated", carrier.Get("event_type"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
}

func TestProducer_PublishFailure(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}, logger: logger.Discard()}
	ev, _ := NewEvent("order.placed", "order", "o1", "marketplace", struct{}{})

	before := testutil.ToFloat64(publishFailures.WithLabelValues("order.placed"))
	err := p.Publish(context.Background(), "order.placed", ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, before+1, testutil.ToFloat64(publishFailures.WithLabelValues("order.placed")))
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := &Producer{logger: logger.Discard()}
	assert.Error(t, p.Ping(context.Background()))
}
