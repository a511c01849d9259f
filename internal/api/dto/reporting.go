package dto

import (
	"time"

	"github.com/civicgrid/grievance-engine/internal/domain"
)

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TicketView is the wire shape of one ticket row in listings.
type TicketView struct {
	TicketID        string `json:"ticket_id"`
	Date            string `json:"date"`
	Category        string `json:"category"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	AssignedOfficer string `json:"assigned_officer"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
	MapLink         string `json:"map_link"`
	Area            string `json:"area"`
	PostalCode      string `json:"postal_code"`
	Rating          int    `json:"rating"`
}

// NewTicketView maps a domain ticket to its wire shape.
func NewTicketView(ticket domain.Ticket) TicketView {
	return TicketView{
		TicketID:        ticket.ID,
		Date:            ticket.CreatedAt.Format("2006-01-02 15:04:05"),
		Category:        string(ticket.Category),
		Severity:        string(ticket.Severity),
		Description:     ticket.Description,
		Status:          string(ticket.Status),
		AssignedOfficer: ticket.AssignedOfficer,
		Latitude:        ticket.Latitude,
		Longitude:       ticket.Longitude,
		MapLink:         ticket.MapLink,
		Area:            ticket.Area,
		PostalCode:      ticket.PostalCode,
		Rating:          ticket.Rating,
	}
}
