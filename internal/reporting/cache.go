package reporting

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// TicketSource supplies the full ticket table. Satisfied by the store
// adapter.
type TicketSource interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
}

// Row is one normalized snapshot row. Latitude/longitude are coerced from
// the store's text columns; nil means the value was missing or non-numeric.
type Row struct {
	Ticket    domain.Ticket
	Latitude  *float64
	Longitude *float64
}

// Cache is the TTL snapshot fronting the backing store for the read-only
// reporting surface. On refresh failure it serves the last good snapshot
// when one exists; otherwise the failure propagates.
type Cache struct {
	source TicketSource
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	snapshot  []Row
	fetchedAt time.Time
	now       func() time.Time
}

// NewCache constructs the snapshot cache.
func NewCache(source TicketSource, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot returns the current table, refreshing it when the TTL expired.
func (c *Cache) Snapshot(ctx context.Context) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}

	tickets, err := c.source.ListTickets(ctx)
	if err != nil {
		c.logger.Error("reporting snapshot refresh failed", zap.Error(err))
		if c.snapshot != nil {
			return c.snapshot, nil
		}
		return nil, err
	}

	rows := make([]Row, 0, len(tickets))
	for _, ticket := range tickets {
		rows = append(rows, Row{
			Ticket:    ticket,
			Latitude:  coerceFloat(ticket.Latitude),
			Longitude: coerceFloat(ticket.Longitude),
		})
	}
	c.snapshot = rows
	c.fetchedAt = c.now()
	c.logger.Info("reporting snapshot refreshed", zap.Int("rows", len(rows)))
	return c.snapshot, nil
}

// coerceFloat parses a numeric cell, mapping empty or malformed values to
// missing rather than failing the whole refresh.
func coerceFloat(value string) *float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
