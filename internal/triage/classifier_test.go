package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

type fakeClassifier struct {
	response string
	err      error
}

func (f *fakeClassifier) Classify(context.Context, []byte) (string, error) {
	return f.response, f.err
}

func TestParseVerdictValid(t *testing.T) {
	verdict, err := ParseVerdict(`{"is_valid": true, "category": "RoadInfra", "severity": "High", "description": "Large pothole in the carriageway."}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !verdict.IsValid {
		t.Fatalf("expected valid verdict")
	}
	if verdict.Category != domain.CategoryRoadInfra {
		t.Fatalf("category = %s", verdict.Category)
	}
	if verdict.Severity != domain.SeverityHigh {
		t.Fatalf("severity = %s", verdict.Severity)
	}
}

func TestParseVerdictFenced(t *testing.T) {
	raw := "```json\n{\"is_valid\": true, \"category\": \"Lighting\", \"severity\": \"Low\", \"description\": \"Streetlight out.\"}\n```"
	verdict, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if verdict.Category != domain.CategoryLighting {
		t.Fatalf("category = %s", verdict.Category)
	}
}

func TestParseVerdictRejection(t *testing.T) {
	verdict, err := ParseVerdict(`{"is_valid": false, "rejection_reason": "This is a photo of a computer screen."}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if verdict.IsValid {
		t.Fatalf("expected rejection")
	}
	if verdict.RejectionReason != "This is a photo of a computer screen." {
		t.Fatalf("reason = %q", verdict.RejectionReason)
	}
}

func TestParseVerdictRejectionDefaultReason(t *testing.T) {
	verdict, err := ParseVerdict(`{"is_valid": false}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if verdict.RejectionReason == "" {
		t.Fatalf("expected a default rejection reason")
	}
}

func TestParseVerdictCategoryNormalization(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.Category
	}{
		{"garbage", domain.CategorySanitation},
		{"Water", domain.CategoryWaterSupply},
		{"roads", domain.CategoryRoadInfra},
		{"streetlight", domain.CategoryLighting},
		{"something-else", domain.CategoryOther},
	}
	for _, tc := range cases {
		if got := normalizeCategory(tc.raw); got != tc.want {
			t.Fatalf("normalizeCategory(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestGateTechnicalFailureIsDistinct(t *testing.T) {
	gate := NewGate(&fakeClassifier{err: errors.New("connection refused")})
	_, err := gate.Classify(context.Background(), []byte("photo"))
	if !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("expected ErrClassificationFailed, got %v", err)
	}

	gate = NewGate(&fakeClassifier{response: "sorry, I cannot help"})
	_, err = gate.Classify(context.Background(), []byte("photo"))
	if !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("malformed output should map to ErrClassificationFailed, got %v", err)
	}
}
