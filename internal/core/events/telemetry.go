package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeErrorRaised      = "error.raised"
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypeJobSucceeded     = "job.succeeded"
	EventTypeJobFailed        = "job.failed"
	EventTypeJobRetried       = "job.retried"
	EventTypeJobDeadLettered  = "job.dead_lettered"
)

// Sink is the telemetry surface the engine emits into. Emission is
// fire-and-forget; implementations must never block the caller.
type Sink interface {
	Emit(event string, measurements map[string]float64, metadata map[string]interface{})
}

// BusSink adapts the EventBus into a Sink.
type BusSink struct {
	bus *EventBus
}

func NewBusSink(bus *EventBus) *BusSink {
	return &BusSink{bus: bus}
}

func (s *BusSink) Emit(event string, measurements map[string]float64, metadata map[string]interface{}) {
	data := make(map[string]interface{}, len(measurements)+len(metadata))
	for k, v := range metadata {
		data[k] = v
	}
	for k, v := range measurements {
		data[k] = v
	}

	s.bus.Publish(context.Background(), BaseEvent{
		ID:        uuid.NewString(),
		Type:      event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// NopSink discards everything; used where telemetry is not wired.
type NopSink struct{}

func (NopSink) Emit(string, map[string]float64, map[string]interface{}) {}
