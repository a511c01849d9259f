package events

import (
	"time"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketResolved EventType = "ticket_resolved"
	EventTicketRated    EventType = "ticket_rated"
)

// Event represents a domain event emitted by the lifecycle.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category        domain.Category `json:"category"`
	Severity        domain.Severity `json:"severity"`
	AssignedOfficer string          `json:"assigned_officer"`
	SubmitterRef    int64           `json:"submitter_ref"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	ResolvedBy    int64  `json:"resolved_by"`
	AfterEvidence string `json:"after_evidence"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Score int `json:"score"`
}
