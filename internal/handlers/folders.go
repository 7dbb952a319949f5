package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/utils"
)

// FolderHandler handles folder routes
type FolderHandler struct {
	DB *gorm.DB
}

// ListFolders handles GET /api/dynamic-documents/folders
// @Summary List folders
// @Description List the current user's folders with their documents, newest first
// @Tags Folders
// @Accept json
// @Produce json
// @Success 200 {array} models.Folder
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders [get]
func (h *FolderHandler) ListFolders(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	folders, err := services.ListFolders(h.DB, user)
	if err != nil {
		return serviceErrorResponse(c, err, "listFolders")
	}

	return c.Status(fiber.StatusOK).JSON(folders)
}

// CreateFolder handles POST /api/dynamic-documents/folders
// @Summary Create a folder
// @Description Create a folder owned by the current user
// @Tags Folders
// @Accept json
// @Produce json
// @Param body body object true "Folder name and color"
// @Success 201 {object} models.Folder
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders [post]
func (h *FolderHandler) CreateFolder(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var body struct {
		Name    string `json:"name"`
		ColorID int    `json:"color_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "folders.validation.input")
	}

	folder, err := services.CreateFolder(h.DB, user, body.Name, body.ColorID)
	if err != nil {
		return serviceErrorResponse(c, err, "createFolder")
	}

	return c.Status(fiber.StatusCreated).JSON(folder)
}

// GetFolder handles GET /api/dynamic-documents/folders/:id
// @Summary Get a folder
// @Description Get a folder with its documents (owner only)
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path int true "Folder ID"
// @Success 200 {object} models.Folder
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders/{id} [get]
func (h *FolderHandler) GetFolder(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid folder id", fiber.StatusBadRequest, "folders.validation.input")
	}

	folder, err := services.GetFolder(h.DB, id, user)
	if err != nil {
		return serviceErrorResponse(c, err, "getFolder")
	}

	return c.Status(fiber.StatusOK).JSON(folder)
}

// UpdateFolder handles PATCH /api/dynamic-documents/folders/:id
// @Summary Update a folder
// @Description Rename or recolor a folder (owner only)
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path int true "Folder ID"
// @Param body body object true "Fields to update"
// @Success 200 {object} models.Folder
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders/{id} [patch]
func (h *FolderHandler) UpdateFolder(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid folder id", fiber.StatusBadRequest, "folders.validation.input")
	}

	var body struct {
		Name    *string `json:"name"`
		ColorID *int    `json:"color_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "folders.validation.input")
	}

	folder, err := services.UpdateFolder(h.DB, id, user, body.Name, body.ColorID)
	if err != nil {
		return serviceErrorResponse(c, err, "updateFolder")
	}

	return c.Status(fiber.StatusOK).JSON(folder)
}

// DeleteFolder handles DELETE /api/dynamic-documents/folders/:id
// @Summary Delete a folder
// @Description Delete a folder and its memberships. Documents are never deleted.
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path int true "Folder ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders/{id} [delete]
func (h *FolderHandler) DeleteFolder(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid folder id", fiber.StatusBadRequest, "folders.validation.input")
	}

	if err := services.DeleteFolder(h.DB, id, user); err != nil {
		return serviceErrorResponse(c, err, "deleteFolder")
	}

	return utils.MutationSuccessResponse(c, 0, 1)
}

// AddDocuments handles POST /api/dynamic-documents/folders/:id/documents
// @Summary Add documents to a folder
// @Description Add documents to a folder, skipping ones already present
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path int true "Folder ID"
// @Param body body object true "Document IDs"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders/{id}/documents [post]
func (h *FolderHandler) AddDocuments(c *fiber.Ctx) error {
	return h.changeDocuments(c, "addFolderDocuments", services.AddFolderDocuments)
}

// RemoveDocuments handles DELETE /api/dynamic-documents/folders/:id/documents
// @Summary Remove documents from a folder
// @Description Remove documents from a folder. Documents themselves are untouched.
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path int true "Folder ID"
// @Param body body object true "Document IDs"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/folders/{id}/documents [delete]
func (h *FolderHandler) RemoveDocuments(c *fiber.Ctx) error {
	return h.changeDocuments(c, "removeFolderDocuments", services.RemoveFolderDocuments)
}

func (h *FolderHandler) changeDocuments(c *fiber.Ctx, errorType string,
	fn func(*gorm.DB, uint64, models.User, []uint64) (int, error)) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid folder id", fiber.StatusBadRequest, "folders.validation.input")
	}

	var body struct {
		DocumentIDs []uint64 `json:"document_ids"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.DocumentIDs) == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "folders.validation.input")
	}

	affected, err := fn(h.DB, id, user, body.DocumentIDs)
	if err != nil {
		return serviceErrorResponse(c, err, errorType)
	}

	return utils.MutationSuccessResponse(c, 0, int64(affected))
}
