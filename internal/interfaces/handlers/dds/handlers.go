package dds

import (
	"sentinel-backend/internal/application/dds"
	"sentinel-backend/internal/pkg/dates"
	"sentinel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handler struct {
	Service *dds.Service
}

func NewHandler(service *dds.Service) *Handler {
	return &Handler{Service: service}
}

// Current returns today's open assignment, or null data when vacant.
func (h *Handler) Current(c *fiber.Ctx) error {
	view, err := h.Service.Current(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	if view == nil {
		return response.Success(c, "No DDS assigned today", nil, nil)
	}
	return response.Success(c, "Current DDS retrieved", view, nil)
}

// Exists is the lightweight kiosk poll.
func (h *Handler) Exists(c *fiber.Ctx) error {
	exists, err := h.Service.Exists(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "DDS existence checked", fiber.Map{"exists": exists}, nil)
}

type assignBody struct {
	MemberID   uuid.UUID `json:"memberId"`
	AssignedBy string    `json:"assignedBy"`
	Notes      *string   `json:"notes"`
}

// Assign creates today's active assignment by admin action.
func (h *Handler) Assign(c *fiber.Ctx) error {
	var body assignBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.MemberID == uuid.Nil {
		return response.Error(c, "VALIDATION_ERROR", "memberId is required", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.Assign(c.Context(), body.MemberID, body.AssignedBy, body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "DDS assigned", view, nil)
}

type scheduleBody struct {
	MemberID   uuid.UUID `json:"memberId"`
	Date       string    `json:"date"`
	AssignedBy string    `json:"assignedBy"`
}

// Schedule writes a pending assignment for a future date.
func (h *Handler) Schedule(c *fiber.Ctx) error {
	var body scheduleBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.MemberID == uuid.Nil {
		return response.Error(c, "VALIDATION_ERROR", "memberId is required", fiber.StatusBadRequest, nil)
	}
	date, err := dates.ParseDate(body.Date)
	if err != nil {
		return response.Error(c, "VALIDATION_ERROR", "date must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.SchedulePending(c.Context(), body.MemberID, date, body.AssignedBy)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "DDS scheduled", view, nil)
}

type notesBody struct {
	Notes *string `json:"notes"`
}

// Accept is the member's self-acceptance of today's duty.
func (h *Handler) Accept(c *fiber.Ctx) error {
	memberID, err := uuid.Parse(c.Params("memberId"))
	if err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid member id", fiber.StatusBadRequest, nil)
	}
	var body notesBody
	_ = c.BodyParser(&body)

	view, err := h.Service.Accept(c.Context(), memberID, body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "DDS accepted", view, nil)
}

type transferBody struct {
	ToMemberID uuid.UUID `json:"toMemberId"`
	Notes      *string   `json:"notes"`
}

// Transfer closes the open assignment and opens one for the new member.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var body transferBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.ToMemberID == uuid.Nil {
		return response.Error(c, "VALIDATION_ERROR", "toMemberId is required", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.Transfer(c.Context(), body.ToMemberID, body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "DDS transferred", view, nil)
}

// Release closes the open assignment without a successor.
func (h *Handler) Release(c *fiber.Ctx) error {
	var body notesBody
	_ = c.BodyParser(&body)

	view, err := h.Service.Release(c.Context(), body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "DDS released", view, nil)
}

// AuditLog returns the newest DDS audit entries.
func (h *Handler) AuditLog(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	entries, err := h.Service.AuditLog(c.Context(), limit)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "DDS audit log retrieved", fiber.Map{
		"logs":  entries,
		"count": len(entries),
	}, fiber.Map{"limit": limit})
}
