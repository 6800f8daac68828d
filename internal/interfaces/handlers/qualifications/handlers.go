package qualifications

import (
	"time"

	"sentinel-backend/internal/application/qualifications"
	"sentinel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handler struct {
	Service *qualifications.Service
}

func NewHandler(service *qualifications.Service) *Handler {
	return &Handler{Service: service}
}

// ListTypes returns the qualification catalogue.
func (h *Handler) ListTypes(c *fiber.Ctx) error {
	types, err := h.Service.ListTypes(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Qualification types retrieved", types, nil)
}

// EligibleMembers lists everyone currently able to receive lockup
// responsibility, with the qualifications that make them eligible.
func (h *Handler) EligibleMembers(c *fiber.Ctx) error {
	members, err := h.Service.LockupEligibleMembers(c.Context())
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Eligible members retrieved", members, nil)
}

// ListForMember returns one member's qualification grants.
func (h *Handler) ListForMember(c *fiber.Ctx) error {
	memberID, err := uuid.Parse(c.Params("memberId"))
	if err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid member id", fiber.StatusBadRequest, nil)
	}
	grants, err := h.Service.ListForMember(c.Context(), memberID)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Member qualifications retrieved", grants, nil)
}

type grantBody struct {
	MemberID  uuid.UUID  `json:"memberId"`
	TypeCode  string     `json:"typeCode"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// Grant awards a qualification to a member.
func (h *Handler) Grant(c *fiber.Ctx) error {
	var body grantBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.MemberID == uuid.Nil || body.TypeCode == "" {
		return response.Error(c, "VALIDATION_ERROR", "memberId and typeCode are required", fiber.StatusBadRequest, nil)
	}

	grant, err := h.Service.Grant(c.Context(), body.MemberID, body.TypeCode, body.ExpiresAt)
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.SuccessCreated(c, "Qualification granted", grant, nil)
}

type revokeBody struct {
	MemberID uuid.UUID `json:"memberId"`
	TypeCode string    `json:"typeCode"`
}

// Revoke withdraws a member's qualification.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	var body revokeBody
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "BAD_REQUEST", "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.MemberID == uuid.Nil || body.TypeCode == "" {
		return response.Error(c, "VALIDATION_ERROR", "memberId and typeCode are required", fiber.StatusBadRequest, nil)
	}

	if err := h.Service.Revoke(c.Context(), body.MemberID, body.TypeCode); err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "Qualification revoked", nil, nil)
}
