package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

type fakeRoster struct {
	records []domain.OfficerRecord
	err     error
	calls   int
}

func (f *fakeRoster) ListRoster(context.Context) ([]domain.OfficerRecord, error) {
	f.calls++
	return f.records, f.err
}

func sampleRoster() []domain.OfficerRecord {
	return []domain.OfficerRecord{
		{OfficerID: "O-100", Name: "R. Sharma", Sector: "RoadInfra", ReportsTo: "O-200", Level: "1"},
		{OfficerID: "O-200", Name: "A. Verma", Sector: "RoadInfra", ReportsTo: "", Level: "2"},
		{OfficerID: "O-300", Name: "K. Singh", Sector: "Lighting", ReportsTo: "O-999", Level: "Field"},
	}
}

func TestResolveMapsL1AndL2(t *testing.T) {
	dir := New(&fakeRoster{records: sampleRoster()}, time.Minute, zap.NewNop())

	assignment := dir.Resolve(context.Background(), domain.CategoryRoadInfra)
	if assignment.L1 != "R. Sharma" {
		t.Fatalf("L1 = %q", assignment.L1)
	}
	if assignment.L2 != "A. Verma" {
		t.Fatalf("L2 = %q", assignment.L2)
	}
	if assignment.SLAHours != 48 {
		t.Fatalf("SLA = %d", assignment.SLAHours)
	}
}

func TestResolveMissingSupervisorDefaultsUnassigned(t *testing.T) {
	dir := New(&fakeRoster{records: sampleRoster()}, time.Minute, zap.NewNop())

	assignment := dir.Resolve(context.Background(), domain.CategoryLighting)
	if assignment.L1 != "K. Singh" {
		t.Fatalf("L1 = %q", assignment.L1)
	}
	if assignment.L2 != domain.OfficerUnassigned {
		t.Fatalf("L2 = %q", assignment.L2)
	}
}

func TestResolveUnknownCategoryFallsBack(t *testing.T) {
	dir := New(&fakeRoster{records: sampleRoster()}, time.Minute, zap.NewNop())

	assignment := dir.Resolve(context.Background(), domain.CategoryFire)
	if assignment.L1 != domain.OfficerGeneralAdmin {
		t.Fatalf("expected General_Admin fallback, got %q", assignment.L1)
	}
}

func TestResolveCachesWithinTTL(t *testing.T) {
	roster := &fakeRoster{records: sampleRoster()}
	dir := New(roster, time.Minute, zap.NewNop())

	dir.Resolve(context.Background(), domain.CategoryRoadInfra)
	dir.Resolve(context.Background(), domain.CategoryLighting)
	if roster.calls != 1 {
		t.Fatalf("roster fetched %d times within TTL", roster.calls)
	}
}

func TestResolveServesStaleOnRefreshFailure(t *testing.T) {
	roster := &fakeRoster{records: sampleRoster()}
	dir := New(roster, time.Minute, zap.NewNop())
	current := time.Unix(1700000000, 0)
	dir.now = func() time.Time { return current }

	dir.Resolve(context.Background(), domain.CategoryRoadInfra)

	roster.err = errors.New("store unreachable")
	current = current.Add(2 * time.Minute)
	assignment := dir.Resolve(context.Background(), domain.CategoryRoadInfra)
	if assignment.L1 != "R. Sharma" {
		t.Fatalf("stale mapping not served, got %q", assignment.L1)
	}
}

func TestResolveEmptyOnFailureWithoutCache(t *testing.T) {
	dir := New(&fakeRoster{err: errors.New("store unreachable")}, time.Minute, zap.NewNop())

	assignment := dir.Resolve(context.Background(), domain.CategoryRoadInfra)
	if assignment.L1 != domain.OfficerGeneralAdmin {
		t.Fatalf("expected fallback assignment, got %q", assignment.L1)
	}
}

func TestBuildMappingLastGroundLevelWins(t *testing.T) {
	records := []domain.OfficerRecord{
		{OfficerID: "O-1", Name: "First", Sector: "Drainage", Level: "1"},
		{OfficerID: "O-2", Name: "Second", Sector: "Drainage", Level: "L1"},
	}
	mapping := buildMapping(records)
	if mapping["Drainage"].L1 != "Second" {
		t.Fatalf("expected last ground-level row to win, got %q", mapping["Drainage"].L1)
	}
}
