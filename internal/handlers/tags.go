package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/utils"
)

// TagHandler handles tag routes
type TagHandler struct {
	DB *gorm.DB
}

// ListTags handles GET /api/dynamic-documents/tags
// @Summary List tags
// @Description List the current user's tags ordered by name
// @Tags Tags
// @Accept json
// @Produce json
// @Success 200 {array} models.Tag
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/tags [get]
func (h *TagHandler) ListTags(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	tags, err := services.ListTags(h.DB, user)
	if err != nil {
		return serviceErrorResponse(c, err, "listTags")
	}

	return c.Status(fiber.StatusOK).JSON(tags)
}

// CreateTag handles POST /api/dynamic-documents/tags
// @Summary Create a tag
// @Description Create a tag owned by the current user (lawyer only)
// @Tags Tags
// @Accept json
// @Produce json
// @Param body body object true "Tag name and color"
// @Success 201 {object} models.Tag
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/tags [post]
func (h *TagHandler) CreateTag(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var body struct {
		Name    string `json:"name"`
		ColorID int    `json:"color_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "tags.validation.input")
	}

	tag, err := services.CreateTag(h.DB, user, body.Name, body.ColorID)
	if err != nil {
		return serviceErrorResponse(c, err, "createTag")
	}

	return c.Status(fiber.StatusCreated).JSON(tag)
}

// DeleteTag handles DELETE /api/dynamic-documents/tags/:id
// @Summary Delete a tag
// @Description Delete a tag and its document associations (lawyer owner only)
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/tags/{id} [delete]
func (h *TagHandler) DeleteTag(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid tag id", fiber.StatusBadRequest, "tags.validation.input")
	}

	if err := services.DeleteTag(h.DB, id, user); err != nil {
		return serviceErrorResponse(c, err, "deleteTag")
	}

	return utils.MutationSuccessResponse(c, 0, 1)
}
