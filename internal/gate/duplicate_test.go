package gate

import (
	"context"
	"testing"
)

func TestDuplicateDetectorMarkThenCheck(t *testing.T) {
	detector := NewMemoryDuplicateDetector()
	ctx := context.Background()
	photo := []byte("jpeg-bytes-pothole")

	dup, err := detector.IsDuplicate(ctx, photo)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if dup {
		t.Fatalf("unseen content flagged as duplicate")
	}

	// Not marked yet: a rejected submission stays re-checkable.
	if dup, _ := detector.IsDuplicate(ctx, photo); dup {
		t.Fatalf("unmarked content flagged as duplicate")
	}

	if err := detector.MarkSeen(ctx, photo); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if dup, _ := detector.IsDuplicate(ctx, photo); !dup {
		t.Fatalf("marked content not flagged as duplicate")
	}
}

func TestDuplicateDetectorDistinctContent(t *testing.T) {
	detector := NewMemoryDuplicateDetector()
	ctx := context.Background()

	if err := detector.MarkSeen(ctx, []byte("streetlight-out.jpg")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if dup, _ := detector.IsDuplicate(ctx, []byte("streetlight-out-v2.jpg")); dup {
		t.Fatalf("distinct content collided")
	}
}

func TestDigestStable(t *testing.T) {
	a := Digest([]byte("same"))
	b := Digest([]byte("same"))
	if a != b {
		t.Fatalf("digest not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("unexpected digest length %d", len(a))
	}
}
