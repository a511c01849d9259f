package intake

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/grievance-engine/internal/directory"
	"github.com/civicgrid/grievance-engine/internal/domain"
	"github.com/civicgrid/grievance-engine/internal/gate"
	"github.com/civicgrid/grievance-engine/internal/geocode"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
	"github.com/civicgrid/grievance-engine/internal/observability"
	"github.com/civicgrid/grievance-engine/internal/store"
	"github.com/civicgrid/grievance-engine/internal/transport"
	"github.com/civicgrid/grievance-engine/internal/triage"
	"github.com/civicgrid/grievance-engine/internal/worker"
)

type fakeStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	roster  []domain.OfficerRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: make(map[string]*domain.Ticket),
		roster: []domain.OfficerRecord{
			{OfficerID: "O-1", Name: "R. Sharma", Sector: "RoadInfra", ReportsTo: "O-2", Level: "1"},
			{OfficerID: "O-2", Name: "A. Verma", Sector: "RoadInfra", Level: "2"},
			{OfficerID: "O-3", Name: "P. Gupta", Sector: "Sanitation", Level: "L1"},
		},
	}
}

func (f *fakeStore) AppendTicket(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeStore) FindTicket(_ context.Context, ticketID string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return nil, store.ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, ticketID string, status domain.TicketStatus, afterEvidence string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return store.ErrTicketNotFound
	}
	if ticket.Status == status {
		return store.ErrStatusUnchanged
	}
	ticket.Status = status
	ticket.AfterEvidence = afterEvidence
	return nil
}

func (f *fakeStore) TicketMeta(_ context.Context, ticketID string) (*domain.TicketMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return nil, store.ErrTicketNotFound
	}
	return &domain.TicketMeta{SubmitterRef: ticket.SubmitterRef, BeforeEvidence: ticket.BeforeEvidence}, nil
}

func (f *fakeStore) UpdateRating(_ context.Context, ticketID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return store.ErrTicketNotFound
	}
	ticket.Rating = score
	return nil
}

func (f *fakeStore) ListRoster(context.Context) ([]domain.OfficerRecord, error) {
	return f.roster, nil
}

func (f *fakeStore) ListTickets(context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]domain.Ticket, 0, len(f.tickets))
	for _, ticket := range f.tickets {
		result = append(result, *ticket)
	}
	return result, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

func (f *fakeStore) get(ticketID string) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket, ok := f.tickets[ticketID]; ok {
		copied := *ticket
		return &copied
	}
	return nil
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessenger) record(kind, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind+": "+text)
}

func (f *fakeMessenger) SendText(_ context.Context, _ int64, html string) error {
	f.record("text", html)
	return nil
}

func (f *fakeMessenger) SendStatus(_ context.Context, _ int64, text string) (int, error) {
	f.record("status", text)
	return 7, nil
}

func (f *fakeMessenger) EditStatus(_ context.Context, _ int64, _ int, html string) error {
	f.record("edit", html)
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, _ int64, _, caption string) error {
	f.record("photo", caption)
	return nil
}

func (f *fakeMessenger) SendBeforeAfter(_ context.Context, _ int64, _, _ string) error {
	f.record("before_after", "")
	return nil
}

func (f *fakeMessenger) SendRatingPrompt(_ context.Context, _ int64, ticketID string) error {
	f.record("rating_prompt", ticketID)
	return nil
}

func (f *fakeMessenger) RequestLocation(_ context.Context, _ int64, text string) error {
	f.record("location_prompt", text)
	return nil
}

func (f *fakeMessenger) countKind(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, entry := range f.sent {
		if len(entry) >= len(kind) && entry[:len(kind)] == kind {
			n++
		}
	}
	return n
}

type scriptedClassifier struct {
	mu        sync.Mutex
	responses []string
}

func (s *scriptedClassifier) Classify(context.Context, []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, nil
}

type nullGeocoder struct{}

func (nullGeocoder) Reverse(context.Context, float64, float64) (geocode.Place, error) {
	return geocode.Place{}, nil
}

func validVerdict(category, description string) string {
	return fmt.Sprintf(`{"is_valid": true, "category": %q, "severity": "High", "description": %q}`, category, description)
}

type harness struct {
	engine    *Engine
	store     *fakeStore
	messenger *fakeMessenger
	runner    *worker.Runner
}

func newHarness(t *testing.T, classifier triage.Classifier, rateMax int) *harness {
	t.Helper()
	logger := zap.NewNop()
	st := newFakeStore()
	messenger := &fakeMessenger{}
	runner := worker.NewRunner(logger, 5*time.Second)
	lc := lifecycle.New(lifecycle.Dependencies{
		Store:         st,
		Directory:     directory.New(st, time.Minute, logger),
		Geocoder:      nullGeocoder{},
		Runner:        runner,
		Messenger:     messenger,
		Metrics:       observability.NewMetrics(),
		Logger:        logger,
		OfficerChatID: 900,
	})
	engine := NewEngine(Dependencies{
		Limiter:    gate.NewMemoryRateLimiter(time.Hour, rateMax),
		Duplicates: gate.NewMemoryDuplicateDetector(),
		Triage:     triage.NewGate(classifier),
		Lifecycle:  lc,
		Messenger:  messenger,
		Validator:  LocationValidator{ThresholdMeters: 25},
		Metrics:    observability.NewMetrics(),
		Logger:     logger,
	})
	return &harness{engine: engine, store: st, messenger: messenger, runner: runner}
}

func TestLocationAccuracyBoundary(t *testing.T) {
	h := newHarness(t, &scriptedClassifier{responses: []string{validVerdict("RoadInfra", "Pothole")}}, 10)
	ctx := context.Background()

	h.engine.HandlePhoto(ctx, transport.PhotoSubmitted{Submitter: 1, EventID: 100, EvidenceBytes: []byte("p1"), EvidenceRef: "r1"})

	// Too coarse: session stays awaiting-location, no ticket.
	h.engine.HandleLocation(ctx, transport.LocationShared{Submitter: 1, Latitude: 12.9, Longitude: 77.6, Accuracy: 26})
	h.runner.Wait()
	if h.store.count() != 0 {
		t.Fatalf("ticket created from low-accuracy sample")
	}
	session, ok := h.engine.sessions.Get(1)
	if !ok || session.State != StateAwaitingLocation {
		t.Fatalf("session not awaiting location after coarse sample")
	}

	// Within threshold: exactly one ticket.
	h.engine.HandleLocation(ctx, transport.LocationShared{Submitter: 1, Latitude: 12.9, Longitude: 77.6, Accuracy: 24})
	h.runner.Wait()
	if h.store.count() != 1 {
		t.Fatalf("ticket count = %d", h.store.count())
	}
	if _, ok := h.engine.sessions.Get(1); ok {
		t.Fatalf("session not discarded after completion")
	}
}

func TestNewPhotoSupersedesPendingVerdict(t *testing.T) {
	classifier := &scriptedClassifier{responses: []string{
		validVerdict("RoadInfra", "Pothole"),
		validVerdict("Sanitation", "Garbage heap"),
	}}
	h := newHarness(t, classifier, 10)
	ctx := context.Background()

	h.engine.HandlePhoto(ctx, transport.PhotoSubmitted{Submitter: 1, EventID: 100, EvidenceBytes: []byte("p1"), EvidenceRef: "r1"})
	h.engine.HandlePhoto(ctx, transport.PhotoSubmitted{Submitter: 1, EventID: 101, EvidenceBytes: []byte("p2"), EvidenceRef: "r2"})
	h.engine.HandleLocation(ctx, transport.LocationShared{Submitter: 1, Latitude: 12.9, Longitude: 77.6, Accuracy: 10})
	h.runner.Wait()

	if h.store.count() != 1 {
		t.Fatalf("ticket count = %d", h.store.count())
	}
	ticket := h.store.get("TKT-101")
	if ticket == nil {
		t.Fatalf("ticket does not reflect the superseding photo")
	}
	if ticket.Category != domain.CategorySanitation {
		t.Fatalf("category = %s; verdicts mixed across photos", ticket.Category)
	}
	if ticket.BeforeEvidence != "r2" {
		t.Fatalf("evidence = %s", ticket.BeforeEvidence)
	}
}

func TestDuplicateSuppressedOnlyAfterAcceptance(t *testing.T) {
	classifier := &scriptedClassifier{responses: []string{
		`{"is_valid": false, "rejection_reason": "Photo of a screen."}`,
		`{"is_valid": false, "rejection_reason": "Photo of a screen."}`,
		validVerdict("RoadInfra", "Pothole"),
	}}
	h := newHarness(t, classifier, 10)
	ctx := context.Background()

	photo := transport.PhotoSubmitted{Submitter: 1, EventID: 1, EvidenceBytes: []byte("same"), EvidenceRef: "r"}

	// Rejected twice: identical bytes are re-triaged, not blocked.
	h.engine.HandlePhoto(ctx, photo)
	h.engine.HandlePhoto(ctx, photo)
	if got := h.messenger.countKind("edit"); got != 2 {
		t.Fatalf("expected 2 triage outcomes, got %d", got)
	}

	// Accepted: now the same bytes are duplicates.
	h.engine.HandlePhoto(ctx, photo)
	h.engine.HandlePhoto(ctx, photo)
	session, ok := h.engine.sessions.Get(1)
	if ok && session.State == StateAwaitingLocation && session.EventID != 1 {
		t.Fatalf("duplicate photo opened a new session")
	}
	if got := h.messenger.countKind("status"); got != 3 {
		t.Fatalf("duplicate submission reached triage: %d status messages", got)
	}
}

func TestRateLimitRejectsPastCeiling(t *testing.T) {
	responses := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, validVerdict("RoadInfra", fmt.Sprintf("Pothole %d", i)))
	}
	h := newHarness(t, &scriptedClassifier{responses: responses}, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.engine.HandlePhoto(ctx, transport.PhotoSubmitted{
			Submitter:     1,
			EventID:       i,
			EvidenceBytes: []byte(fmt.Sprintf("photo-%d", i)),
			EvidenceRef:   fmt.Sprintf("r%d", i),
		})
	}
	// Third submission never reaches triage.
	if got := h.messenger.countKind("status"); got != 2 {
		t.Fatalf("submissions past ceiling reached triage: %d", got)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	h := newHarness(t, &scriptedClassifier{responses: []string{validVerdict("RoadInfra", "Pothole")}}, 10)
	ctx := context.Background()

	h.engine.HandlePhoto(ctx, transport.PhotoSubmitted{Submitter: 1, EventID: 1, EvidenceBytes: []byte("p"), EvidenceRef: "r"})
	h.engine.HandleCancel(ctx, transport.CancelRequested{Submitter: 1})
	if _, ok := h.engine.sessions.Get(1); ok {
		t.Fatalf("session survived cancel")
	}

	h.engine.HandleLocation(ctx, transport.LocationShared{Submitter: 1, Latitude: 1, Longitude: 2, Accuracy: 5})
	h.runner.Wait()
	if h.store.count() != 0 {
		t.Fatalf("cancelled session produced a ticket")
	}
}

func TestEndToEndIntakeResolutionRating(t *testing.T) {
	h := newHarness(t, &scriptedClassifier{responses: []string{validVerdict("RoadInfra", "Deep pothole on the main road")}}, 10)
	ctx := context.Background()

	// Citizen submits a valid roadway-defect photo.
	h.engine.HandlePhoto(ctx, transport.PhotoSubmitted{Submitter: 42, EventID: 4821, EvidenceBytes: []byte("road"), EvidenceRef: "before-ref"})
	h.engine.HandleLocation(ctx, transport.LocationShared{Submitter: 42, Latitude: 12.9, Longitude: 77.6, Accuracy: 10})
	h.runner.Wait()

	ticket := h.store.get("TKT-4821")
	if ticket == nil {
		t.Fatalf("ticket not created")
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.Category != domain.CategoryRoadInfra {
		t.Fatalf("ticket = %+v", ticket)
	}
	if ticket.AssignedOfficer != "R. Sharma" {
		t.Fatalf("officer = %s", ticket.AssignedOfficer)
	}
	if ticket.Rating != 0 {
		t.Fatalf("rating preset")
	}

	// Officer replies to the notification with resolution evidence.
	h.engine.HandleResolutionReply(ctx, transport.ReplyWithPhoto{
		Replier:       900,
		EvidenceRef:   "after-ref",
		InReplyToText: lifecycle.OfficerCaption(ticket),
	})
	resolved := h.store.get("TKT-4821")
	if resolved.Status != domain.TicketStatusResolved || resolved.AfterEvidence != "after-ref" {
		t.Fatalf("resolution not applied: %+v", resolved)
	}
	if h.messenger.countKind("before_after") != 1 {
		t.Fatalf("citizen did not receive before/after evidence")
	}
	if h.messenger.countKind("rating_prompt") != 1 {
		t.Fatalf("citizen did not receive rating prompt")
	}

	// Citizen rates the resolution.
	h.engine.HandleRating(ctx, transport.RatingChosen{Submitter: 42, TicketID: "TKT-4821", Score: 5})
	h.runner.Wait()
	if got := h.store.get("TKT-4821").Rating; got != 5 {
		t.Fatalf("rating = %d", got)
	}
}

func TestResolutionReplyWithoutTicketAnchor(t *testing.T) {
	h := newHarness(t, &scriptedClassifier{}, 10)

	h.engine.HandleResolutionReply(context.Background(), transport.ReplyWithPhoto{
		Replier:       900,
		EvidenceRef:   "after",
		InReplyToText: "great work team",
	})
	if h.messenger.countKind("text") != 1 {
		t.Fatalf("extraction failure not reported to officer")
	}
	if h.store.count() != 0 {
		t.Fatalf("unexpected store mutation")
	}
}

func TestLocationWithoutSessionPrompts(t *testing.T) {
	h := newHarness(t, &scriptedClassifier{}, 10)

	h.engine.HandleLocation(context.Background(), transport.LocationShared{Submitter: 5, Latitude: 1, Longitude: 2, Accuracy: 3})
	h.runner.Wait()
	if h.store.count() != 0 {
		t.Fatalf("ticket created without a session")
	}
	if h.messenger.countKind("text") != 1 {
		t.Fatalf("submitter not guided to send a photo first")
	}
}
