package lockup

import (
	"sentinel-backend/internal/application/lockup"
	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handler struct {
	Service *lockup.Service
}

func NewHandler(service *lockup.Service) *Handler {
	return &Handler{Service: service}
}

func parseMemberID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("memberId"))
	if err != nil {
		return uuid.Nil, domain.BadRequest("Invalid member id")
	}
	return id, nil
}

// GetStatus returns today's lockup status, creating the day row if needed.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	view, err := h.Service.Status(c.Context(), "")
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup status retrieved", view, nil)
}

// GetStatusByDate returns the status for a specific date. Historical dates
// with no row are a 404.
func (h *Handler) GetStatusByDate(c *fiber.Ctx) error {
	view, err := h.Service.Status(c.Context(), c.Params("date"))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup status retrieved", view, nil)
}

type notesBody struct {
	Notes *string `json:"notes"`
}

// Acquire grants the vacant responsibility to the member in the path.
func (h *Handler) Acquire(c *fiber.Ctx) error {
	memberID, err := parseMemberID(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	var body notesBody
	_ = c.BodyParser(&body)

	view, err := h.Service.Acquire(c.Context(), memberID, body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup responsibility acquired", view, nil)
}

type transferBody struct {
	ToMemberID uuid.UUID `json:"toMemberId"`
	Reason     string    `json:"reason"`
	Notes      *string   `json:"notes"`
}

// Transfer hands the responsibility to another member.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var body transferBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.ToMemberID == uuid.Nil {
		return response.Error(c, "VALIDATION_ERROR", "toMemberId is required", fiber.StatusBadRequest, nil)
	}

	view, err := h.Service.Transfer(c.Context(), body.ToMemberID, body.Reason, body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup responsibility transferred", view, nil)
}

// Execute performs the building lockup as the member in the path.
func (h *Handler) Execute(c *fiber.Ctx) error {
	memberID, err := parseMemberID(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	var body notesBody
	_ = c.BodyParser(&body)

	result, err := h.Service.Execute(c.Context(), memberID, body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup executed", result, nil)
}

// Release clears the current holder without a checkout sweep.
func (h *Handler) Release(c *fiber.Ctx) error {
	var body notesBody
	_ = c.BodyParser(&body)

	view, err := h.Service.Release(c.Context(), body.Notes)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup responsibility released", view, nil)
}

// CheckoutOptions answers what the member can do at the checkout kiosk.
func (h *Handler) CheckoutOptions(c *fiber.Ctx) error {
	memberID, err := parseMemberID(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	options, err := h.Service.CheckoutOptionsFor(c.Context(), memberID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Checkout options retrieved", options, nil)
}

// History returns the merged transfer/execution feed.
func (h *Handler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	page, err := h.Service.History(c.Context(), limit, offset)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Lockup history retrieved", fiber.Map{
		"items":   page.Items,
		"total":   page.Total,
		"hasMore": page.HasMore,
	}, fiber.Map{"limit": limit, "offset": offset})
}

// CheckAuth is the legacy qualification-only check.
func (h *Handler) CheckAuth(c *fiber.Ctx) error {
	memberID, err := parseMemberID(c)
	if err != nil {
		return response.DomainError(c, err)
	}
	authorized, message, err := h.Service.CheckAuth(c.Context(), memberID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Authorization checked", fiber.Map{
		"authorized": authorized,
		"message":    message,
	}, nil)
}
