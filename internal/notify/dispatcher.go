package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity grades how urgently a notification should be handled downstream.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Template keys for the messages this service emits. Rendering happens in the
// downstream notification system; we ship the key plus variables.
const (
	TemplateCaseStatusChanged = "case_status_changed"
	TemplateSLAEscalated      = "sla_escalated"
	TemplateSLAWarning        = "sla_warning"
)

// Message is one notification handed to the delivery channel.
type Message struct {
	ID          uuid.UUID         `json:"id"`
	CaseID      uuid.UUID         `json:"case_id"`
	TemplateKey string            `json:"template_key"`
	RecipientID string            `json:"recipient_id"`
	Severity    Severity          `json:"severity"`
	Variables   map[string]string `json:"variables,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Dispatcher hands notifications to a delivery channel. Delivery is best
// effort and asynchronous from the caller's point of view: a failed dispatch
// must never roll back the case transition that triggered it.
type Dispatcher interface {
	// Trigger enqueues one notification and returns its delivery ID.
	Trigger(ctx context.Context, msg Message) (uuid.UUID, error)
}
