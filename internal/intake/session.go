package intake

import (
	"sync"
	"time"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// State enumerates the intake session states. Triaging is transient inside
// the photo handler; terminal states are never stored, the session is
// simply discarded.
type State int

const (
	StateNew State = iota
	StateTriaging
	StateAwaitingLocation
	StateCompleted
	StateCancelled
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateTriaging:
		return "triaging"
	case StateAwaitingLocation:
		return "awaiting_location"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateRejected:
		return "rejected"
	default:
		return "new"
	}
}

// Session is one submitter's journey from photo to terminal outcome. The
// session exclusively owns its pending verdict and evidence handle; no
// history survives a terminal transition.
type Session struct {
	Submitter   int64
	State       State
	Verdict     *domain.TriageVerdict
	EvidenceRef string
	EventID     int
	CreatedAt   time.Time
}

// Sessions is the single-flight per-submitter session registry. At most
// one session exists per submitter at a time.
type Sessions struct {
	mu     sync.Mutex
	active map[int64]*Session
	now    func() time.Time
}

// NewSessions constructs the registry.
func NewSessions() *Sessions {
	return &Sessions{
		active: make(map[int64]*Session),
		now:    time.Now,
	}
}

// Get returns the submitter's active session, if any.
func (s *Sessions) Get(submitter int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.active[submitter]
	return session, ok
}

// Begin installs a fresh awaiting-location session, superseding any
// previous one for the submitter.
func (s *Sessions) Begin(submitter int64, eventID int, verdict *domain.TriageVerdict, evidenceRef string) *Session {
	session := &Session{
		Submitter:   submitter,
		State:       StateAwaitingLocation,
		Verdict:     verdict,
		EvidenceRef: evidenceRef,
		EventID:     eventID,
		CreatedAt:   s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[submitter] = session
	return session
}

// End discards the submitter's session on a terminal transition. Reports
// whether a session existed.
func (s *Sessions) End(submitter int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[submitter]
	delete(s.active, submitter)
	return ok
}

// LocationValidator accepts or rejects a location sample by its reported
// accuracy. The threshold is a fixed configuration constant.
type LocationValidator struct {
	ThresholdMeters float64
}

// Acceptable reports whether the sample is precise enough to complete the
// session. Samples above the threshold keep the session awaiting-location;
// the submitter may retry indefinitely.
func (v LocationValidator) Acceptable(sample domain.LocationSample) bool {
	return sample.AccuracyMeters <= v.ThresholdMeters
}
