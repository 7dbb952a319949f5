package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lexkeep/dyndocs/internal/config"
	"github.com/lexkeep/dyndocs/internal/middleware"
	"github.com/lexkeep/dyndocs/internal/models"
	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/types"
	"github.com/lexkeep/dyndocs/internal/utils"
)

// DocumentHandler handles document lifecycle and dashboard routes
type DocumentHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// ListDocuments handles GET /api/dynamic-documents
// @Summary List visible documents
// @Description List documents visible to the current user, filtered by search, tags, states and folder
// @Tags Documents
// @Accept json
// @Produce json
// @Param search query string false "Case-insensitive search over title and state"
// @Param tags query string false "Comma-separated tag IDs"
// @Param states query string false "Comma-separated states"
// @Param folder query int false "Folder ID"
// @Success 200 {array} models.Document
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	filter := services.DocumentFilter{
		Search: c.Query("search"),
		TagIDs: parseIDQuery(c, "tags"),
	}
	for _, s := range parseStringQuery(c, "states") {
		filter.States = append(filter.States, models.DocumentState(s))
	}
	if folder := c.QueryInt("folder"); folder > 0 {
		folderID := uint64(folder)
		filter.FolderID = &folderID
	}

	docs, err := services.ListDocuments(h.DB, user, filter)
	if err != nil {
		return serviceErrorResponse(c, err, "listDocuments")
	}

	return c.Status(fiber.StatusOK).JSON(docs)
}

// CreateDocument handles POST /api/dynamic-documents
// @Summary Create a draft document
// @Description Create a new document template in Draft state (lawyer only)
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body services.DocumentInput true "Document fields"
// @Success 201 {object} models.Document
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents [post]
func (h *DocumentHandler) CreateDocument(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input services.DocumentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "documents.validation.input")
	}

	doc, err := services.CreateDraft(h.DB, user, input)
	if err != nil {
		return serviceErrorResponse(c, err, "createDocument")
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetDocument handles GET /api/dynamic-documents/:id
// @Summary Get a document
// @Description Get a document with variables, tags and signatures. Hidden documents return 404.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	doc, err := services.GetDocument(h.DB, id)
	if err != nil {
		return serviceErrorResponse(c, err, "getDocument")
	}

	// Invisible documents are indistinguishable from missing ones.
	if !services.VisibleTo(doc, user) {
		return utils.NotFoundResponse(c, "Not found")
	}

	return c.Status(fiber.StatusOK).JSON(doc)
}

// UpdateDocument handles PATCH /api/dynamic-documents/:id
// @Summary Update a document
// @Description Update title, content, variables and summary fields (version-checked)
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version plus document fields"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id} [patch]
func (h *DocumentHandler) UpdateDocument(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	var body struct {
		Version types.FlexUint64 `json:"version"`
		services.DocumentInput
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "documents.validation.input")
	}

	newVersion, err := services.UpdateDocument(h.DB, id, body.Version.Uint64(), user, body.DocumentInput)
	if err != nil {
		return serviceErrorResponse(c, err, "updateDocument")
	}

	return utils.MutationSuccessResponse(c, newVersion, 1)
}

// DeleteDocument handles DELETE /api/dynamic-documents/:id
// @Summary Delete a document
// @Description Delete a document with its variables, signatures, grants and folder memberships
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	var body struct {
		Version types.FlexUint64 `json:"version"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "documents.validation.input")
	}

	affectedRows, err := services.DeleteDocument(h.DB, id, body.Version.Uint64(), user)
	if err != nil {
		return serviceErrorResponse(c, err, "deleteDocument")
	}

	return utils.MutationSuccessResponse(c, 0, affectedRows)
}

// Publish handles POST /api/dynamic-documents/:id/publish
// @Summary Publish a draft
// @Description Move a Draft document to Published (owner, lawyer only)
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/publish [post]
func (h *DocumentHandler) Publish(c *fiber.Ctx) error {
	return h.transition(c, "publish", services.Publish)
}

// MoveToDraft handles POST /api/dynamic-documents/:id/draft
// @Summary Move a published document back to draft
// @Description Move a Published document back to Draft (owner only)
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/draft [post]
func (h *DocumentHandler) MoveToDraft(c *fiber.Ctx) error {
	return h.transition(c, "moveToDraft", services.MoveToDraft)
}

// Complete handles POST /api/dynamic-documents/:id/complete
// @Summary Complete a document
// @Description Move a Progress document to Completed once required variables hold values (assignee only)
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version check"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/complete [post]
func (h *DocumentHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, "complete", services.Complete)
}

// transition runs a version-checked state transition shared by the simple
// transition endpoints.
func (h *DocumentHandler) transition(c *fiber.Ctx, errorType string,
	fn func(*gorm.DB, uint64, uint64, models.User) (uint64, error)) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	var body struct {
		Version types.FlexUint64 `json:"version"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "documents.validation.input")
	}

	newVersion, err := fn(h.DB, id, body.Version.Uint64(), user)
	if err != nil {
		return serviceErrorResponse(c, err, errorType)
	}

	return utils.MutationSuccessResponse(c, newVersion, 1)
}

// UseTemplate handles POST /api/dynamic-documents/:id/use-template
// @Summary Instantiate a template
// @Description Copy a Published template into a new Progress document assigned to the current user
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Template document ID"
// @Success 201 {object} models.Document
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/use-template [post]
func (h *DocumentHandler) UseTemplate(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	doc, err := services.Instantiate(h.DB, id, user)
	if err != nil {
		return serviceErrorResponse(c, err, "useTemplate")
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// Formalize handles POST /api/dynamic-documents/:id/formalize
// @Summary Formalize a document
// @Description Move a Completed document to PendingSignatures, creating one signature row per signer
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param body body object true "Version, signers and optional sign_by deadline"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/formalize [post]
func (h *DocumentHandler) Formalize(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	// signatures accepts a single signer object or an array of them
	var body struct {
		Version    types.FlexUint64                     `json:"version"`
		Signatures types.FlexList[services.SignerInput] `json:"signatures"`
		SignBy     *time.Time                           `json:"sign_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "documents.validation.input")
	}

	defaultDeadline := time.Duration(h.Cfg.SignDeadlineDays) * 24 * time.Hour
	newVersion, err := services.Formalize(h.DB, id, body.Version.Uint64(), user, body.Signatures, body.SignBy, defaultDeadline)
	if err != nil {
		return serviceErrorResponse(c, err, "formalize")
	}

	return utils.MutationSuccessResponse(c, newVersion, int64(len(body.Signatures)))
}

// Actions handles GET /api/dynamic-documents/:id/actions
// @Summary Get the action menu
// @Description Get the ordered action menu for the current user on a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {array} services.Action
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /dynamic-documents/{id}/actions [get]
func (h *DocumentHandler) Actions(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, "Invalid document id", fiber.StatusBadRequest, "documents.validation.input")
	}

	doc, err := services.GetDocument(h.DB, id)
	if err != nil {
		return serviceErrorResponse(c, err, "documentActions")
	}
	if !services.VisibleTo(doc, user) {
		return utils.NotFoundResponse(c, "Not found")
	}

	return c.Status(fiber.StatusOK).JSON(services.AvailableActions(doc, user))
}
