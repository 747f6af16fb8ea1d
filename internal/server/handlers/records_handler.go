package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
)

// RecordService is the submission capability the handlers depend on.
type RecordService interface {
	List(ctx context.Context, group models.Group) ([]models.Record, error)
	Get(ctx context.Context, group models.Group, id int64) (models.Record, error)
	Create(ctx context.Context, group models.Group, payload map[string]any) (models.Record, error)
	Update(ctx context.Context, group models.Group, id int64, payload map[string]any) (models.Record, error)
	Delete(ctx context.Context, group models.Group, id int64) error
}

// RecordsHandler serves CRUD on both record groups.
type RecordsHandler struct {
	svc    RecordService
	logger *zap.Logger
}

// NewRecordsHandler constructs the records handler.
func NewRecordsHandler(svc RecordService, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{svc: svc, logger: logger}
}

// List returns every record of the group, newest first.
func (h *RecordsHandler) List(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}

	recs, err := h.svc.List(c.Request.Context(), group)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if recs == nil {
		recs = []models.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

// Get returns one record.
func (h *RecordsHandler) Get(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), group, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create stores a submission for today.
func (h *RecordsHandler) Create(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), group, payload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Update applies a partial update.
func (h *RecordsHandler) Update(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	payload, ok := h.bindPayload(c)
	if !ok {
		return
	}

	rec, err := h.svc.Update(c.Request.Context(), group, id, payload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete removes one record.
func (h *RecordsHandler) Delete(c *gin.Context) {
	group, ok := groupParam(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), group, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecordsHandler) bindPayload(c *gin.Context) (map[string]any, bool) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
		h.logger.Warn("invalid record payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return nil, false
	}
	return payload, true
}
