package presence

import (
	"sentinel-backend/internal/application/presence"
	"sentinel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	Service *presence.Service
}

func NewHandler(service *presence.Service) *Handler {
	return &Handler{Service: service}
}

// Stats returns the occupancy counters for the kiosk dashboard.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.Service.PresenceStats(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Presence stats retrieved", stats, nil)
}

// Members lists everyone currently in the building.
func (h *Handler) Members(c *fiber.Ctx) error {
	members, err := h.Service.PresentMembers(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Present members retrieved", members, fiber.Map{"count": len(members)})
}

// Visitors lists visitors who have not signed out.
func (h *Handler) Visitors(c *fiber.Ctx) error {
	visitors, err := h.Service.ActiveVisitors(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Active visitors retrieved", visitors, fiber.Map{"count": len(visitors)})
}
