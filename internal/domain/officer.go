package domain

// Sentinel officer names used when routing cannot produce a real assignee.
const (
	OfficerUnassigned   = "Unassigned"
	OfficerGeneralAdmin = "General_Admin"
)

// OfficerRecord is one row of the officer roster. Level distinguishes
// ground-level field officers from their supervisors; ReportsTo carries the
// supervisor's OfficerID.
type OfficerRecord struct {
	OfficerID string
	Name      string
	Sector    string
	ReportsTo string
	Level     string
}

// Assignment is the routing outcome for one category: the ground-level
// officer, their escalation contact, and the service-level window.
type Assignment struct {
	L1       string
	L2       string
	SLAHours int
}
