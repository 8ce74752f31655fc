// Package kafka publishes audit events as JSON records keyed by character.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	audit "corpauth/pkg/platform/audit"
)

// Producer is the subset of a Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Sink implements audit.Sink.
type Sink struct {
	producer Producer
}

func NewSink(producer Producer) *Sink {
	return &Sink{producer: producer}
}

type record struct {
	Category    string `json:"category"`
	Timestamp   string `json:"timestamp"`
	CharacterID int64  `json:"character_id,omitempty"`
	ChatUserID  string `json:"chat_user_id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Action      string `json:"action"`
	Decision    string `json:"decision,omitempty"`
	Reason      string `json:"reason,omitempty"`
	PassID      string `json:"pass_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
}

// Append publishes the event. Records for one character share a key so they
// land on the same partition in order.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		Category:    string(event.Category),
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		CharacterID: int64(event.CharacterID),
		ChatUserID:  string(event.ChatUserID),
		Subject:     event.Subject,
		Action:      event.Action,
		Decision:    event.Decision,
		Reason:      event.Reason,
		PassID:      event.PassID,
		RequestID:   event.RequestID,
		ActorID:     event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	var key []byte
	if !event.CharacterID.IsZero() {
		key = []byte(event.CharacterID.String())
	}
	return s.producer.Produce(ctx, key, payload)
}
