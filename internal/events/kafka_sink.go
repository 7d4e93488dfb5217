package events

import (
	"context"
	"encoding/json"
)

// Producer ships serialized events. *kafka.Producer satisfies it.
type Producer interface {
	Produce(ctx context.Context, key string, body []byte)
}

// KafkaSink forwards every event to a producer as JSON.
type KafkaSink struct {
	producer Producer
}

// NewKafkaSink builds a sink.
func NewKafkaSink(producer Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// Register subscribes the sink to every event type.
func (s *KafkaSink) Register(d Dispatcher) {
	for _, t := range AllEventTypes {
		d.Subscribe(t, s.handle)
	}
}

func (s *KafkaSink) handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.producer.Produce(ctx, event.Key(), body)
	return nil
}
