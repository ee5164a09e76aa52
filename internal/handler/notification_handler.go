package handler

import (
	"net/http"
	"strconv"

	"chattrix/internal/model"
	"chattrix/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List GET /api/notifications?limit=
func (h *NotificationHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.svc.ListForRecipient(c.Request.Context(), CallerID(c), limit)
	if err != nil {
		writeError(c, h.logger, "list notifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UnreadCount GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.GetUnreadCount(c.Request.Context(), CallerID(c))
	if err != nil {
		writeError(c, h.logger, "count unread notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), c.Param("id"), CallerID(c))
	if err != nil {
		writeError(c, h.logger, "mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// MarkAllRead PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(c.Request.Context(), CallerID(c)); err != nil {
		writeError(c, h.logger, "mark all notifications read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// Delete DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	if _, err := h.svc.Delete(c.Request.Context(), c.Param("id"), CallerID(c)); err != nil {
		writeError(c, h.logger, "delete notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

// Create POST /api/internal/notifications, the producer entry point.
func (h *NotificationHandler) Create(c *gin.Context) {
	var req model.NewNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	n, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, "create notification", err)
		return
	}
	c.JSON(http.StatusCreated, n)
}
