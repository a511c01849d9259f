package observability

import (
	"strconv"
	"sync"
)

// Metrics provides basic in-memory counters for the intake pipeline and
// the reporting API. Safe for concurrent use.
type Metrics struct {
	mu           sync.Mutex
	intakeCount  map[string]int64
	requestCount map[string]int64
	errorCount   map[string]int64
}

// Intake counter names.
const (
	CounterSubmissions       = "submissions"
	CounterRejectedRateLimit = "rejected_rate_limit"
	CounterRejectedDuplicate = "rejected_duplicate"
	CounterRejectedTriage    = "rejected_triage"
	CounterTriageFailures    = "triage_failures"
	CounterTicketsCreated    = "tickets_created"
	CounterTicketsResolved   = "tickets_resolved"
	CounterRatingsRecorded   = "ratings_recorded"
)

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		intakeCount:  make(map[string]int64),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordIntake increments a named intake counter.
func (m *Metrics) RecordIntake(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intakeCount[name]++
}

// IntakeCount returns the current value of a named intake counter.
func (m *Metrics) IntakeCount(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intakeCount[name]
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments HTTP error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}
