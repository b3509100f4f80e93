package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

const envelopeVersion = 1

// ActorRef identifies who caused the state change; nil for gateway callbacks.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published verbatim.
// EventID equals the outbox row id, so DLQ rows and consumer logs line up.
type PayloadEnvelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	OccurredAt    time.Time                 `json:"occurredAt"`
	TraceID       string                    `json:"traceId,omitempty"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}
