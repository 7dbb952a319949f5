package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
	"github.com/lexkeep/dyndocs/internal/utils"
)

// PermissionHandler handles document permission routes
type PermissionHandler struct {
	DB *gorm.DB
}

// GetPermissions handles GET /api/dynamic-documents/:id/permissions
// @Summary Get document permissions
// @Description Get a document's permission state in compact and expanded form (creating lawyer only)
// @Tags Permissions
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/permissions [get]
func (h *PermissionHandler) GetPermissions(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "permissions.validation.input")
	}

	doc, err := services.GetDocument(h.DB, id)
	if err != nil {
		return serviceErrorResponse(c, err, "getPermissions")
	}
	if doc.CreatedBy != user.UserID || !user.Role.Capabilities().CanManagePermissions {
		return utils.ForbiddenResponse(c, "Only the creating lawyer can manage permissions")
	}

	set, err := services.LoadDocumentPermissions(h.DB, id)
	if err != nil {
		return serviceErrorResponse(c, err, "getPermissions")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"compact":  set.Compact(),
		"expanded": set.Expanded(),
	})
}

// UpdatePermissions handles PATCH /api/dynamic-documents/:id/permissions
// @Summary Update document permissions
// @Description Replace a document's permission grants with the supplied compact form (creating lawyer only, version-checked)
// @Tags Permissions
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version plus compact permission form"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/permissions [patch]
func (h *PermissionHandler) UpdatePermissions(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "permissions.validation.input")
	}

	var body struct {
		Version types.FlexUint64 `json:"version"`
		services.CompactPermissions
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "permissions.validation.input")
	}

	newVersion, err := services.SaveDocumentPermissions(h.DB, id, body.Version.Uint64(), user, body.CompactPermissions)
	if err != nil {
		return serviceErrorResponse(c, err, "updatePermissions")
	}

	return utils.MutationSuccessResponse(c, newVersion, 1)
}

// ListClients handles GET /api/dynamic-documents/permissions/clients
// @Summary List available clients
// @Description List the non-lawyer users permissions can be granted to
// @Tags Permissions
// @Accept json
// @Produce json
// @Success 200 {array} services.AvailableClient
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/permissions/clients [get]
func (h *PermissionHandler) ListClients(c *fiber.Ctx) error {
	clients, err := services.ListAvailableClients(h.DB)
	if err != nil {
		return serviceErrorResponse(c, err, "listClients")
	}

	return c.Status(fiber.StatusOK).JSON(clients)
}

// ListRoles handles GET /api/dynamic-documents/permissions/roles
// @Summary List grantable roles
// @Description List the roles a permission grant can target
// @Tags Permissions
// @Accept json
// @Produce json
// @Success 200 {array} string
// @Router /dynamic-documents/permissions/roles [get]
func (h *PermissionHandler) ListRoles(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(types.GrantableRoles())
}
