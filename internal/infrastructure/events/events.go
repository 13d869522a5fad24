// Package events publishes match lifecycle events so other services can
// react to reconciliation changes.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// EventType doubles as the AMQP routing key
type EventType string

const (
	EventMatchApplied   EventType = "match.applied"
	EventMatchUnmatched EventType = "match.unmatched"
)

// MatchEvent is emitted after a match is applied or removed
type MatchEvent struct {
	Type       EventType     `json:"type"`
	Match      matcher.Match `json:"match"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewMatchEvent creates an event for the current state of m
func NewMatchEvent(eventType EventType, m *matcher.Match) MatchEvent {
	return MatchEvent{
		Type:       eventType,
		Match:      *m,
		OccurredAt: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e MatchEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// MatchEventFromJSON creates an event from JSON bytes
func MatchEventFromJSON(data []byte) (*MatchEvent, error) {
	var event MatchEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher delivers match events
type Publisher interface {
	Publish(ctx context.Context, event MatchEvent) error
	Close() error
}

// NopPublisher drops every event. Used when events are disabled.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, MatchEvent) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }
