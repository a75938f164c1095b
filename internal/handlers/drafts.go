package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"drafts-service/internal/drafts"
	"drafts-service/internal/middleware"
	"drafts-service/internal/models"
	"drafts-service/internal/repositories"
	"drafts-service/internal/telemetry"
)

// DraftService is the surface of the drafts core the HTTP layer consumes.
type DraftService interface {
	CreateDrafts(ctx context.Context, user models.User, payloads []models.DraftPayload) ([]models.Draft, error)
	EditDraft(ctx context.Context, user models.User, draftID int, payload models.DraftPayload) error
	DeleteDraft(ctx context.Context, user models.User, draftID int) error
	ListDrafts(ctx context.Context, user models.User) ([]models.Draft, error)
}

// DraftHandler manages the draft endpoints.
type DraftHandler struct {
	service DraftService
	audit   *telemetry.AuditEmitter
}

// NewDraftHandler constructs a DraftHandler.
func NewDraftHandler(service DraftService, audit *telemetry.AuditEmitter) *DraftHandler {
	return &DraftHandler{service: service, audit: audit}
}

// ListDrafts returns the caller's drafts.
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing user"})
		return
	}

	list, err := h.service.ListDrafts(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load drafts"})
		return
	}

	responses := make([]models.DraftResponse, 0, len(list))
	for _, draft := range list {
		responses = append(responses, draft.Response())
	}
	c.JSON(http.StatusOK, gin.H{"count": len(responses), "drafts": responses})
}

// CreateDrafts bulk-creates drafts from the request body. The whole batch is
// validated before anything is written; the first bad payload fails everything.
func (h *DraftHandler) CreateDrafts(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing user"})
		return
	}

	var req struct {
		Drafts []models.DraftPayload `json:"drafts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Drafts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "drafts list must be non-empty"})
		return
	}
	for _, payload := range req.Drafts {
		if err := payload.CheckSyntax(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	created, err := h.service.CreateDrafts(c.Request.Context(), user, req.Drafts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	responses := make([]models.DraftResponse, 0, len(created))
	for _, draft := range created {
		responses = append(responses, draft.Response())
	}
	h.emitAudit(c, "INFO", "drafts created")
	c.JSON(http.StatusCreated, gin.H{"drafts": responses})
}

// EditDraft replaces an existing draft with the supplied payload.
func (h *DraftHandler) EditDraft(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing user"})
		return
	}

	draftID, err := strconv.Atoi(c.Param("draft_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return
	}

	var payload models.DraftPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := payload.CheckSyntax(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.EditDraft(c.Request.Context(), user, draftID, payload); err != nil {
		h.respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "draft updated")
	c.Status(http.StatusNoContent)
}

// DeleteDraft removes a draft owned by the caller.
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing user"})
		return
	}

	draftID, err := strconv.Atoi(c.Param("draft_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return
	}

	if err := h.service.DeleteDraft(c.Request.Context(), user, draftID); err != nil {
		h.respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "draft deleted")
	c.Status(http.StatusNoContent)
}

// respondError maps core failures to HTTP responses. Messages of validation
// failures pass through to the client verbatim.
func (h *DraftHandler) respondError(c *gin.Context, err error) {
	var addressingErr *drafts.AddressingError

	switch {
	case errors.Is(err, repositories.ErrDraftNotFound):
		h.emitAudit(c, "ERROR", "draft not found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrStreamAccessDenied):
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, drafts.ErrInvalidTimestamp),
		errors.Is(err, drafts.ErrInvalidTopic),
		errors.Is(err, drafts.ErrInvalidRecipientCount),
		errors.Is(err, drafts.ErrEmptyContent),
		errors.Is(err, drafts.ErrContentNullBytes),
		errors.Is(err, repositories.ErrStreamNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.As(err, &addressingErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *DraftHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
