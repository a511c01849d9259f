package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicgrid/grievance-engine/internal/api/dto"
	"github.com/civicgrid/grievance-engine/internal/reporting"
	apperrors "github.com/civicgrid/grievance-engine/pkg/util"
)

// ReportsHandler exposes the read-only dashboard endpoints over the
// reporting snapshot cache.
type ReportsHandler struct {
	reports *reporting.Service
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *reporting.Service) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Stats handles GET /api/stats.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reports.Stats(c.UserContext())
	if err != nil {
		return apperrors.NewUnavailable("ticket register unavailable", err)
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Filters handles GET /api/filters.
func (h *ReportsHandler) Filters(c *fiber.Ctx) error {
	filters, err := h.reports.Filters(c.UserContext())
	if err != nil {
		return apperrors.NewUnavailable("ticket register unavailable", err)
	}
	return c.JSON(fiber.Map{"data": filters})
}

// Works handles GET /api/works with optional narrowing query params.
func (h *ReportsHandler) Works(c *fiber.Ctx) error {
	query := reporting.ListQuery{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Severity: c.Query("severity"),
		Officer:  c.Query("officer"),
		Search:   c.Query("search"),
	}

	tickets, err := h.reports.List(c.UserContext(), query)
	if err != nil {
		return apperrors.NewUnavailable("ticket register unavailable", err)
	}

	views := make([]dto.TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		views = append(views, dto.NewTicketView(ticket))
	}
	return c.JSON(fiber.Map{"data": views, "count": len(views)})
}

// Locations handles GET /api/locations for the map view.
func (h *ReportsHandler) Locations(c *fiber.Ctx) error {
	points, err := h.reports.Locations(c.UserContext())
	if err != nil {
		return apperrors.NewUnavailable("ticket register unavailable", err)
	}
	return c.JSON(fiber.Map{"data": points})
}
