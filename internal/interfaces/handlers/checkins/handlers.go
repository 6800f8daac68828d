package checkins

import (
	"sentinel-backend/internal/application/checkins"
	"sentinel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handler struct {
	Service *checkins.Service
}

func NewHandler(service *checkins.Service) *Handler {
	return &Handler{Service: service}
}

// Create records a check-in or check-out scan.
func (h *Handler) Create(c *fiber.Ctx) error {
	var in checkins.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if in.MemberID == uuid.Nil {
		return response.Error(c, "VALIDATION_ERROR", "memberId is required", fiber.StatusBadRequest, nil)
	}

	checkin, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Check-in recorded", checkin, nil)
}
