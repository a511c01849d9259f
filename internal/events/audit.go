package events

import (
	"context"

	"go.uber.org/zap"
)

// AuditTrail records every grievance lifecycle event to the structured
// log, giving operators a replayable trail alongside the ticket register.
type AuditTrail struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewAuditTrail creates the trail.
func NewAuditTrail(dispatcher Dispatcher, logger *zap.Logger) *AuditTrail {
	return &AuditTrail{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditTrail) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(EventTicketResolved, a.handleTicketResolved)
	a.dispatcher.Subscribe(EventTicketRated, a.handleTicketRated)
}

func (a *AuditTrail) handleTicketCreated(_ context.Context, event Event) error {
	a.logger.Info("TicketCreated",
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditTrail) handleTicketResolved(_ context.Context, event Event) error {
	a.logger.Info("TicketResolved",
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditTrail) handleTicketRated(_ context.Context, event Event) error {
	a.logger.Info("TicketRated",
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
