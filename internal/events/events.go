package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kitstock-api/pkg/uid"
)

// Event types published on state changes.
const (
	KitsImported        = "kit.imported"
	KitSold             = "kit.sold"
	KitsRestocked       = "kit.restocked"
	KitsDeleted         = "kit.deleted"
	CODCreated          = "cod.created"
	CODConfirmed        = "cod.confirmed"
	CODCancelled        = "cod.cancelled"
	ReturnCreated       = "return.created"
	ReturnStatusChanged = "return.status_changed"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually the order id
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope around payload.
func NewEnvelope(producer, eventType, correlationID string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Envelope{
		EventID:       uid.New(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Publisher emits domain events. Publishing never fails the caller's
// operation; implementations log delivery errors.
type Publisher interface {
	Publish(ctx context.Context, eventType, correlationID string, payload any)
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) {}
func (Nop) Close() error                                 { return nil }
