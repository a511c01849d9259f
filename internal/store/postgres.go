package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// ErrTicketNotFound is returned when a ticket id has no row. A lookup
// shortly after a background append can hit this transiently.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrStatusUnchanged is returned when a status update targets the state
// the row is already in, which is how a lost race between two concurrent
// resolution attempts surfaces.
var ErrStatusUnchanged = errors.New("ticket status already applied")

// PostgresStore implements Store over a pgx connection pool. Latitude and
// longitude are stored as text, mirroring the tabular sheet the record
// layout comes from; the reporting side coerces them to numbers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the adapter.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const ticketColumns = `ticket_id, created_at, category, severity, description, status,
               assigned_officer, latitude, longitude, map_link, area, postal_code,
               submitter_ref, before_evidence, after_evidence, rating`

// AppendTicket inserts the ticket row. Conflicting ids are ignored so a
// retried append against the same originating event stays idempotent.
func (s *PostgresStore) AppendTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, created_at, category, severity, description, status,
            assigned_officer, latitude, longitude, map_link, area, postal_code,
            submitter_ref, before_evidence, after_evidence, rating)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        ON CONFLICT (ticket_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		ticket.ID,
		ticket.CreatedAt,
		ticket.Category,
		ticket.Severity,
		ticket.Description,
		ticket.Status,
		ticket.AssignedOfficer,
		ticket.Latitude,
		ticket.Longitude,
		ticket.MapLink,
		ticket.Area,
		ticket.PostalCode,
		ticket.SubmitterRef,
		ticket.BeforeEvidence,
		ticket.AfterEvidence,
		ticket.Rating,
	)
	return err
}

// FindTicket fetches a single ticket by id.
func (s *PostgresStore) FindTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	var ticket domain.Ticket
	if err := s.pool.QueryRow(ctx, query, ticketID).Scan(
		&ticket.ID,
		&ticket.CreatedAt,
		&ticket.Category,
		&ticket.Severity,
		&ticket.Description,
		&ticket.Status,
		&ticket.AssignedOfficer,
		&ticket.Latitude,
		&ticket.Longitude,
		&ticket.MapLink,
		&ticket.Area,
		&ticket.PostalCode,
		&ticket.SubmitterRef,
		&ticket.BeforeEvidence,
		&ticket.AfterEvidence,
		&ticket.Rating,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatus sets the lifecycle status and the resolution evidence. The
// update is conditional on the status actually changing, so concurrent
// resolution attempts on the same ticket cannot both succeed.
func (s *PostgresStore) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus, afterEvidence string) error {
	const query = `UPDATE tickets SET status=$1, after_evidence=$2 WHERE ticket_id=$3 AND status <> $1`
	cmd, err := s.pool.Exec(ctx, query, status, afterEvidence, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_id=$1)`, ticketID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrTicketNotFound
	}
	return ErrStatusUnchanged
}

// TicketMeta fetches the submitter reference and before-evidence handle.
func (s *PostgresStore) TicketMeta(ctx context.Context, ticketID string) (*domain.TicketMeta, error) {
	const query = `SELECT submitter_ref, before_evidence FROM tickets WHERE ticket_id=$1`
	var meta domain.TicketMeta
	if err := s.pool.QueryRow(ctx, query, ticketID).Scan(&meta.SubmitterRef, &meta.BeforeEvidence); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &meta, nil
}

// UpdateRating records the citizen score. Last write wins on repeated
// clicks of the rating prompt.
func (s *PostgresStore) UpdateRating(ctx context.Context, ticketID string, score int) error {
	const query = `UPDATE tickets SET rating=$1 WHERE ticket_id=$2`
	cmd, err := s.pool.Exec(ctx, query, score, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// ListRoster returns all officer rows.
func (s *PostgresStore) ListRoster(ctx context.Context) ([]domain.OfficerRecord, error) {
	const query = `SELECT officer_id, full_name, sector, reports_to, level FROM officers`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OfficerRecord
	for rows.Next() {
		var record domain.OfficerRecord
		if err := rows.Scan(&record.OfficerID, &record.Name, &record.Sector, &record.ReportsTo, &record.Level); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// ListTickets returns the full ticket table for the reporting snapshot.
func (s *PostgresStore) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.CreatedAt,
			&ticket.Category,
			&ticket.Severity,
			&ticket.Description,
			&ticket.Status,
			&ticket.AssignedOfficer,
			&ticket.Latitude,
			&ticket.Longitude,
			&ticket.MapLink,
			&ticket.Area,
			&ticket.PostalCode,
			&ticket.SubmitterRef,
			&ticket.BeforeEvidence,
			&ticket.AfterEvidence,
			&ticket.Rating,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
