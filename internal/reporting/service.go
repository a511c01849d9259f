package reporting

import (
	"context"
	"sort"
	"strings"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// Stats summarizes the ticket table for the dashboard header.
type Stats struct {
	Total     int            `json:"total"`
	Open      int            `json:"open"`
	Resolved  int            `json:"resolved"`
	Breakdown map[string]int `json:"breakdown"`
}

// Filters lists the distinct values usable as listing filters.
type Filters struct {
	Categories []string `json:"categories"`
	Severities []string `json:"severities"`
	Statuses   []string `json:"statuses"`
	Officers   []string `json:"officers"`
}

// ListQuery narrows the ticket listing.
type ListQuery struct {
	Category string
	Status   string
	Severity string
	Officer  string
	Search   string
}

// GeoPoint is one map-view marker for a ticket with valid coordinates.
type GeoPoint struct {
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Category string  `json:"category"`
	Severity string  `json:"severity"`
	Status   string  `json:"status"`
	Desc     string  `json:"desc"`
}

// Service answers read-only reporting queries from the snapshot cache.
type Service struct {
	cache *Cache
}

// NewService constructs the reporting service.
func NewService(cache *Cache) *Service {
	return &Service{cache: cache}
}

// Stats returns aggregate counts by status.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Total: len(rows), Breakdown: map[string]int{}}
	for _, row := range rows {
		stats.Breakdown[string(row.Ticket.Status)]++
	}
	stats.Resolved = stats.Breakdown[string(domain.TicketStatusResolved)]
	stats.Open = stats.Total - stats.Resolved
	return stats, nil
}

// Filters returns sorted distinct filter values.
func (s *Service) Filters(ctx context.Context) (*Filters, error) {
	rows, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	categories := map[string]struct{}{}
	severities := map[string]struct{}{}
	statuses := map[string]struct{}{}
	officers := map[string]struct{}{}
	for _, row := range rows {
		categories[string(row.Ticket.Category)] = struct{}{}
		severities[string(row.Ticket.Severity)] = struct{}{}
		statuses[string(row.Ticket.Status)] = struct{}{}
		officers[row.Ticket.AssignedOfficer] = struct{}{}
	}
	return &Filters{
		Categories: sortedKeys(categories),
		Severities: sortedKeys(severities),
		Statuses:   sortedKeys(statuses),
		Officers:   sortedKeys(officers),
	}, nil
}

// List returns filtered ticket rows.
func (s *Service) List(ctx context.Context, query ListQuery) ([]domain.Ticket, error) {
	rows, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		ticket := row.Ticket
		if query.Category != "" && string(ticket.Category) != query.Category {
			continue
		}
		if query.Status != "" && string(ticket.Status) != query.Status {
			continue
		}
		if query.Severity != "" && string(ticket.Severity) != query.Severity {
			continue
		}
		if query.Officer != "" && ticket.AssignedOfficer != query.Officer {
			continue
		}
		if query.Search != "" && !matchesSearch(ticket, query.Search) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

// Locations returns map markers for tickets with valid coordinates.
func (s *Service) Locations(ctx context.Context) ([]GeoPoint, error) {
	rows, err := s.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]GeoPoint, 0, len(rows))
	for _, row := range rows {
		if row.Latitude == nil || row.Longitude == nil {
			continue
		}
		points = append(points, GeoPoint{
			ID:       row.Ticket.ID,
			Lat:      *row.Latitude,
			Lng:      *row.Longitude,
			Category: string(row.Ticket.Category),
			Severity: string(row.Ticket.Severity),
			Status:   string(row.Ticket.Status),
			Desc:     row.Ticket.Description,
		})
	}
	return points, nil
}

func matchesSearch(ticket domain.Ticket, term string) bool {
	needle := strings.ToLower(term)
	return strings.Contains(strings.ToLower(ticket.ID), needle) ||
		strings.Contains(strings.ToLower(ticket.Description), needle)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
