package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

type fakeTickets struct {
	tickets []domain.Ticket
	err     error
	calls   int
}

func (f *fakeTickets) ListTickets(context.Context) ([]domain.Ticket, error) {
	f.calls++
	return f.tickets, f.err
}

func sampleTickets() []domain.Ticket {
	return []domain.Ticket{
		{ID: "TKT-1", Category: domain.CategoryRoadInfra, Severity: domain.SeverityHigh, Status: domain.TicketStatusOpen, Description: "Pothole near junction", AssignedOfficer: "R. Sharma", Latitude: "12.9", Longitude: "77.6"},
		{ID: "TKT-2", Category: domain.CategoryLighting, Severity: domain.SeverityLow, Status: domain.TicketStatusResolved, Description: "Streetlight flickering", AssignedOfficer: "K. Singh", Latitude: "not-a-number", Longitude: ""},
	}
}

func TestSnapshotCachedWithinTTL(t *testing.T) {
	source := &fakeTickets{tickets: sampleTickets()}
	cache := NewCache(source, time.Minute, zap.NewNop())
	ctx := context.Background()

	first, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	second, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("store hit %d times within TTL", source.calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("unexpected row counts %d/%d", len(first), len(second))
	}
}

func TestSnapshotCoercesCoordinates(t *testing.T) {
	cache := NewCache(&fakeTickets{tickets: sampleTickets()}, time.Minute, zap.NewNop())

	rows, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if rows[0].Latitude == nil || *rows[0].Latitude != 12.9 {
		t.Fatalf("numeric latitude not coerced")
	}
	if rows[1].Latitude != nil {
		t.Fatalf("non-numeric latitude should be missing")
	}
	if rows[1].Longitude != nil {
		t.Fatalf("empty longitude should be missing")
	}
}

func TestSnapshotServesStaleOnFailure(t *testing.T) {
	source := &fakeTickets{tickets: sampleTickets()}
	cache := NewCache(source, time.Minute, zap.NewNop())
	current := time.Unix(1700000000, 0)
	cache.now = func() time.Time { return current }
	ctx := context.Background()

	if _, err := cache.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	source.err = errors.New("store unreachable")
	current = current.Add(2 * time.Minute)
	rows, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("expected stale snapshot, got error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("stale snapshot rows = %d", len(rows))
	}
}

func TestSnapshotPropagatesFailureWithoutCache(t *testing.T) {
	cache := NewCache(&fakeTickets{err: errors.New("store unreachable")}, time.Minute, zap.NewNop())
	if _, err := cache.Snapshot(context.Background()); err == nil {
		t.Fatalf("expected error when no snapshot exists")
	}
}

func TestServiceStatsAndFilters(t *testing.T) {
	cache := NewCache(&fakeTickets{tickets: sampleTickets()}, time.Minute, zap.NewNop())
	svc := NewService(cache)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Open != 1 || stats.Resolved != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	filters, err := svc.Filters(ctx)
	if err != nil {
		t.Fatalf("filters failed: %v", err)
	}
	if len(filters.Categories) != 2 || len(filters.Officers) != 2 {
		t.Fatalf("filters = %+v", filters)
	}
}

func TestServiceListFiltersAndSearch(t *testing.T) {
	cache := NewCache(&fakeTickets{tickets: sampleTickets()}, time.Minute, zap.NewNop())
	svc := NewService(cache)
	ctx := context.Background()

	open, err := svc.List(ctx, ListQuery{Status: "Open"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != "TKT-1" {
		t.Fatalf("status filter returned %+v", open)
	}

	found, err := svc.List(ctx, ListQuery{Search: "tkt-2"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != "TKT-2" {
		t.Fatalf("search returned %+v", found)
	}
}

func TestServiceLocationsSkipInvalidCoordinates(t *testing.T) {
	cache := NewCache(&fakeTickets{tickets: sampleTickets()}, time.Minute, zap.NewNop())
	svc := NewService(cache)

	points, err := svc.Locations(context.Background())
	if err != nil {
		t.Fatalf("locations failed: %v", err)
	}
	if len(points) != 1 || points[0].ID != "TKT-1" {
		t.Fatalf("locations = %+v", points)
	}
}
