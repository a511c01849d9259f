package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// Classifier turns evidence bytes into a raw model response. Implementations
// call the vision-classification collaborator; failures are transport-level
// and retryable.
type Classifier interface {
	Classify(ctx context.Context, evidence []byte) (string, error)
}

// ErrClassificationFailed marks a technical failure (malformed output or
// unreachable collaborator), distinct from a valid "rejected" verdict. The
// submitter is told to try again rather than shown a rejection reason.
var ErrClassificationFailed = errors.New("classification failed")

// Prompt is the fixed instruction contract sent with every photo. It
// requests strict JSON and names both rejection grounds: photos of screens
// or displays, and subjects that are not public-infrastructure defects.
const Prompt = `You are the triage step of a public grievance system. Analyze the attached photo.

Reject the photo (is_valid=false with a rejection_reason) if either:
1. It is a photo of a screen, monitor, TV or printed picture rather than a direct photo of real infrastructure.
2. It does not show a public infrastructure defect (portraits, documents, unrelated objects, unclear or blurry images).

If valid, classify it:
- category: one of Sanitation, Drainage, WaterSupply, RoadInfra, Lighting, Fire, Other
- severity: one of High, Medium, Low
- description: one sentence describing the issue

Respond with ONLY a JSON object, no markdown, in this exact shape:
{"is_valid": true|false, "rejection_reason": "...", "category": "...", "severity": "...", "description": "..."}`

// Gate invokes the classifier and interprets its output as a TriageVerdict.
type Gate struct {
	classifier Classifier
}

// NewGate constructs the triage gate.
func NewGate(classifier Classifier) *Gate {
	return &Gate{classifier: classifier}
}

// Classify runs the collaborator and parses the verdict. A transport error
// or unparseable response yields ErrClassificationFailed.
func (g *Gate) Classify(ctx context.Context, evidence []byte) (*domain.TriageVerdict, error) {
	raw, err := g.classifier.Classify(ctx, evidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	verdict, err := ParseVerdict(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}
	return verdict, nil
}

type verdictPayload struct {
	IsValid         bool   `json:"is_valid"`
	RejectionReason string `json:"rejection_reason"`
	Category        string `json:"category"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
}

// ParseVerdict decodes the model's JSON response, tolerating markdown code
// fences some models wrap around it.
func ParseVerdict(raw string) (*domain.TriageVerdict, error) {
	cleaned := stripFences(raw)
	var payload verdictPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	verdict := &domain.TriageVerdict{
		IsValid:         payload.IsValid,
		RejectionReason: strings.TrimSpace(payload.RejectionReason),
		Description:     strings.TrimSpace(payload.Description),
	}
	if !payload.IsValid {
		if verdict.RejectionReason == "" {
			verdict.RejectionReason = "The photo could not be verified as a public infrastructure issue."
		}
		return verdict, nil
	}

	verdict.Category = normalizeCategory(payload.Category)
	verdict.Severity = normalizeSeverity(payload.Severity)
	if verdict.Description == "" {
		return nil, errors.New("valid verdict missing description")
	}
	return verdict, nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	return strings.TrimSpace(cleaned)
}

func normalizeCategory(value string) domain.Category {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", "")) {
	case "sanitation", "garbage":
		return domain.CategorySanitation
	case "drainage":
		return domain.CategoryDrainage
	case "watersupply", "water":
		return domain.CategoryWaterSupply
	case "roadinfra", "roads", "road", "pothole":
		return domain.CategoryRoadInfra
	case "lighting", "streetlight":
		return domain.CategoryLighting
	case "fire":
		return domain.CategoryFire
	default:
		return domain.CategoryOther
	}
}

func normalizeSeverity(value string) domain.Severity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return domain.SeverityHigh
	case "low":
		return domain.SeverityLow
	default:
		return domain.SeverityMedium
	}
}
