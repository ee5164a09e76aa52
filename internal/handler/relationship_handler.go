package handler

import (
	"net/http"

	"chattrix/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RelationshipHandler struct {
	svc    *service.RelationshipService
	logger *zap.Logger
}

func NewRelationshipHandler(svc *service.RelationshipService, logger *zap.Logger) *RelationshipHandler {
	return &RelationshipHandler{svc: svc, logger: logger}
}

// List GET /api/relationships
func (h *RelationshipHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), CallerID(c))
	if err != nil {
		writeError(c, h.logger, "list relationships", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get GET /api/relationships/:followingId
func (h *RelationshipHandler) Get(c *gin.Context) {
	rel, err := h.svc.Get(c.Request.Context(), CallerID(c), c.Param("followingId"))
	if err != nil {
		writeError(c, h.logger, "get relationship", err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

// Update PATCH /api/relationships/:followingId. Fields absent from the body
// keep their stored values.
func (h *RelationshipHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	follower, following := CallerID(c), c.Param("followingId")

	current, err := h.svc.Get(ctx, follower, following)
	if err != nil {
		writeError(c, h.logger, "get relationship", err)
		return
	}

	settings := current.RelationshipSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rel, err := h.svc.Update(ctx, follower, following, settings)
	if err != nil {
		writeError(c, h.logger, "update relationship", err)
		return
	}
	c.JSON(http.StatusOK, rel)
}
