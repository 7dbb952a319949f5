package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/utils"
)

// SignatureHandler handles signer response routes
type SignatureHandler struct {
	DB *gorm.DB
}

// Sign handles POST /api/dynamic-documents/signatures/:token/sign
// @Summary Sign a document
// @Description Record the current user's signature. The token must belong to the user's email.
// @Tags Signatures
// @Accept json
// @Produce json
// @Param token path string true "Signature access token"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/signatures/{token}/sign [post]
func (h *SignatureHandler) Sign(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	token := c.Params("token")
	if token == "" {
		return utils.ErrorResponse(c, "Invalid token", fiber.StatusBadRequest, "signatures.validation.input")
	}

	state, err := services.SignByToken(h.DB, token, user.Email)
	if err != nil {
		return serviceErrorResponse(c, err, "signDocument")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":    true,
		"state": state,
	})
}

// Reject handles POST /api/dynamic-documents/signatures/:token/reject
// @Summary Reject a document
// @Description Record the current user's rejection with an optional comment. Rejection is final for the document.
// @Tags Signatures
// @Accept json
// @Produce json
// @Param token path string true "Signature access token"
// @Param body body object false "Rejection comment"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/signatures/{token}/reject [post]
func (h *SignatureHandler) Reject(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	token := c.Params("token")
	if token == "" {
		return utils.ErrorResponse(c, "Invalid token", fiber.StatusBadRequest, "signatures.validation.input")
	}

	var body struct {
		Comment string `json:"comment"`
	}
	// Body is optional, a bare rejection carries no comment.
	_ = c.BodyParser(&body)

	state, err := services.RejectByToken(h.DB, token, user.Email, body.Comment)
	if err != nil {
		return serviceErrorResponse(c, err, "rejectDocument")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":    true,
		"state": state,
	})
}
