package store

import (
	"context"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// Store is the backing-store adapter for ticket persistence and roster
// lookup. All operations are best-effort network calls with per-operation
// atomicity only; there is no transaction spanning calls, and callers must
// not assume read-after-write consistency immediately after a background
// append.
type Store interface {
	AppendTicket(ctx context.Context, ticket *domain.Ticket) error
	FindTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, afterEvidence string) error
	TicketMeta(ctx context.Context, ticketID string) (*domain.TicketMeta, error)
	UpdateRating(ctx context.Context, ticketID string, score int) error
	ListRoster(ctx context.Context) ([]domain.OfficerRecord, error)
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
}
