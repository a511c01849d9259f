package domain

// TriageVerdict is the interpreted outcome of vision triage. RejectionReason
// is set only when IsValid is false; Category, Severity and Description are
// set only when it is true.
type TriageVerdict struct {
	IsValid         bool
	RejectionReason string
	Category        Category
	Severity        Severity
	Description     string
}

// LocationSample is one geolocation fix shared by a submitter, with the
// reported horizontal accuracy in meters.
type LocationSample struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
}
