package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DuplicateDetector suppresses byte-identical resubmissions. The check runs
// before triage to save classification calls, but content is only marked
// seen after triage accepts it: a rejected photo resubmitted verbatim is
// re-triaged rather than silently blocked.
type DuplicateDetector interface {
	IsDuplicate(ctx context.Context, content []byte) (bool, error)
	MarkSeen(ctx context.Context, content []byte) error
}

// Digest returns the content address for evidence bytes.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// MemoryDuplicateDetector keeps the seen-set in process memory. The set is
// process-lifetime and unbounded.
type MemoryDuplicateDetector struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDuplicateDetector constructs the in-memory detector.
func NewMemoryDuplicateDetector() *MemoryDuplicateDetector {
	return &MemoryDuplicateDetector{seen: make(map[string]struct{})}
}

// IsDuplicate implements DuplicateDetector.
func (d *MemoryDuplicateDetector) IsDuplicate(_ context.Context, content []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[Digest(content)]
	return ok, nil
}

// MarkSeen implements DuplicateDetector.
func (d *MemoryDuplicateDetector) MarkSeen(_ context.Context, content []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[Digest(content)] = struct{}{}
	return nil
}

// RedisDuplicateDetector shares the seen-set across processes.
type RedisDuplicateDetector struct {
	client *redis.Client
}

const duplicateSetKey = "evidence:seen"

// NewRedisDuplicateDetector constructs the Redis-backed detector.
func NewRedisDuplicateDetector(client *redis.Client) *RedisDuplicateDetector {
	return &RedisDuplicateDetector{client: client}
}

// IsDuplicate implements DuplicateDetector.
func (d *RedisDuplicateDetector) IsDuplicate(ctx context.Context, content []byte) (bool, error) {
	return d.client.SIsMember(ctx, duplicateSetKey, Digest(content)).Result()
}

// MarkSeen implements DuplicateDetector.
func (d *RedisDuplicateDetector) MarkSeen(ctx context.Context, content []byte) error {
	return d.client.SAdd(ctx, duplicateSetKey, Digest(content)).Err()
}
