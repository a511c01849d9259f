package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for grievance tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "Open"
	TicketStatusResolved TicketStatus = "Resolved"
)

// Severity enumerates triage urgency.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Category enumerates grievance sectors used for officer routing.
type Category string

const (
	CategorySanitation  Category = "Sanitation"
	CategoryDrainage    Category = "Drainage"
	CategoryWaterSupply Category = "WaterSupply"
	CategoryRoadInfra   Category = "RoadInfra"
	CategoryLighting    Category = "Lighting"
	CategoryFire        Category = "Fire"
	CategoryOther       Category = "Other"
)

// Ticket is the durable record of one grievance from creation to resolution.
// The backing store is the sole source of truth; the engine never holds a
// durable copy.
type Ticket struct {
	ID              string
	CreatedAt       time.Time
	Category        Category
	Severity        Severity
	Description     string
	Status          TicketStatus
	AssignedOfficer string
	Latitude        string
	Longitude       string
	MapLink         string
	Area            string
	PostalCode      string
	SubmitterRef    int64
	BeforeEvidence  string
	AfterEvidence   string
	Rating          int
}

// TicketMeta is the minimal slice of a ticket needed to close the loop
// with the submitter after resolution.
type TicketMeta struct {
	SubmitterRef   int64
	BeforeEvidence string
}

// TicketID derives the deterministic ticket identifier from the originating
// event id, so retries against the same event are idempotent.
func TicketID(eventID int) string {
	return fmt.Sprintf("TKT-%d", eventID)
}

// MapLink builds a Google Maps link for the given coordinates.
func MapLink(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", lat, lon)
}
