package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custodia/internal/platform/kafka/producer"
)

// KafkaStore ships audit events to a kafka topic keyed by account so a
// consumer preserves per-account ordering. It is write-only; reads go to the
// in-memory or durable store this sink is usually teed with.
type KafkaStore struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaStore(p *producer.Producer, topic string) *KafkaStore {
	return &KafkaStore{producer: p, topic: topic}
}

// eventJSON is the wire shape of an audit event. Unix-nano timestamps keep
// the payload compact and sortable.
type eventJSON struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Module    string `json:"module"`
	Action    string `json:"action"`
	Account   string `json:"account"`
	Entity    string `json:"entity,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(eventJSON{
		ID:        event.ID.String(),
		Timestamp: event.Timestamp.UnixNano(),
		Module:    event.Module,
		Action:    string(event.Action),
		Account:   event.Account,
		Entity:    event.Entity,
		Detail:    event.Detail,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.Account),
		Value: payload,
		Headers: map[string]string{
			"module":  event.Module,
			"emitted": event.Timestamp.Format(time.RFC3339Nano),
		},
	})
}

func (s *KafkaStore) ListByAccount(context.Context, string) ([]Event, error) {
	return nil, ErrUnsupported
}

// TeeStore appends to every sink and reads from the first. The server tees
// the in-memory store with the kafka sink when brokers are configured.
type TeeStore struct {
	sinks []Store
}

func NewTeeStore(sinks ...Store) *TeeStore {
	return &TeeStore{sinks: sinks}
}

func (s *TeeStore) Append(ctx context.Context, event Event) error {
	for _, sink := range s.sinks {
		if err := sink.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (s *TeeStore) ListByAccount(ctx context.Context, account string) ([]Event, error) {
	if len(s.sinks) == 0 {
		return nil, ErrUnsupported
	}
	return s.sinks[0].ListByAccount(ctx, account)
}
