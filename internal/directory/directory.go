package directory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// RosterSource supplies officer rows. Satisfied by the store adapter.
type RosterSource interface {
	ListRoster(ctx context.Context) ([]domain.OfficerRecord, error)
}

const defaultSLAHours = 48

// Directory is the TTL-cached category→officer assignment mapping. A
// refresh failure never clears an existing mapping; the stale value is
// served until a refresh succeeds.
type Directory struct {
	source RosterSource
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.Mutex
	mapping   map[string]domain.Assignment
	fetchedAt time.Time
	now       func() time.Time
}

// New constructs the directory.
func New(source RosterSource, ttl time.Duration, logger *zap.Logger) *Directory {
	return &Directory{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve returns the assignment for a category. When the roster has no
// ground-level officer for the category, the General_Admin fallback is
// returned instead of an error; assignment never blocks ticket creation.
func (d *Directory) Resolve(ctx context.Context, category domain.Category) domain.Assignment {
	mapping := d.snapshot(ctx)
	if assignment, ok := mapping[string(category)]; ok {
		return assignment
	}
	return domain.Assignment{
		L1:       domain.OfficerGeneralAdmin,
		L2:       domain.OfficerUnassigned,
		SLAHours: defaultSLAHours,
	}
}

func (d *Directory) snapshot(ctx context.Context) map[string]domain.Assignment {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mapping != nil && d.now().Sub(d.fetchedAt) < d.ttl {
		return d.mapping
	}

	records, err := d.source.ListRoster(ctx)
	if err != nil {
		d.logger.Error("officer roster refresh failed", zap.Error(err))
		if d.mapping != nil {
			return d.mapping
		}
		return map[string]domain.Assignment{}
	}

	d.mapping = buildMapping(records)
	d.fetchedAt = d.now()
	d.logger.Info("refreshed officer directory", zap.Int("sectors", len(d.mapping)))
	return d.mapping
}

// buildMapping derives per-sector assignments from roster rows. Ground-level
// rows supply L1; L2 comes from one hop through Reports_To. When several
// ground-level rows share a sector the last one in iteration order wins.
func buildMapping(records []domain.OfficerRecord) map[string]domain.Assignment {
	byID := make(map[string]domain.OfficerRecord, len(records))
	for _, record := range records {
		byID[record.OfficerID] = record
	}

	mapping := make(map[string]domain.Assignment)
	for _, record := range records {
		if record.Sector == "" || !isGroundLevel(record.Level) {
			continue
		}
		l2 := domain.OfficerUnassigned
		if parent, ok := byID[record.ReportsTo]; ok {
			l2 = parent.Name
		}
		mapping[record.Sector] = domain.Assignment{
			L1:       record.Name,
			L2:       l2,
			SLAHours: defaultSLAHours,
		}
	}
	return mapping
}

func isGroundLevel(level string) bool {
	switch level {
	case "1", "L1", "Field":
		return true
	default:
		return false
	}
}
