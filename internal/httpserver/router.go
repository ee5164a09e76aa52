package httpserver

import (
	"context"
	"net/http"
	"time"

	"chattrix/internal/handler"
	"chattrix/pkg/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

type Handlers struct {
	Notification *handler.NotificationHandler
	Relationship *handler.RelationshipHandler
	Realtime     *handler.RealtimeHandler
}

func NewRouter(log *zap.Logger, h Handlers, store Pinger, jwtSecret string) *Router {
	r := gin.New()
	r.Use(RecoveryMiddleware(log), TraceMiddleware(), LoggingMiddleware(log))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/ws", h.Realtime.Connect)

		api := auth.Group("/api")

		notifications := api.Group("/notifications")
		notifications.GET("", RequirePermission(rbac.PermissionReadNotification), h.Notification.List)
		notifications.GET("/unread-count", RequirePermission(rbac.PermissionReadNotification), h.Notification.UnreadCount)
		notifications.PUT("/read-all", RequirePermission(rbac.PermissionUpdateNotification), h.Notification.MarkAllRead)
		notifications.PUT("/:id/read", RequirePermission(rbac.PermissionUpdateNotification), h.Notification.MarkRead)
		notifications.DELETE("/:id", RequirePermission(rbac.PermissionDeleteNotification), h.Notification.Delete)

		api.POST("/internal/notifications", RequirePermission(rbac.PermissionCreateNotification), h.Notification.Create)

		relationships := api.Group("/relationships")
		relationships.GET("", RequirePermission(rbac.PermissionReadRelationship), h.Relationship.List)
		relationships.GET("/:followingId", RequirePermission(rbac.PermissionReadRelationship), h.Relationship.Get)
		relationships.PATCH("/:followingId", RequirePermission(rbac.PermissionUpdateRelationship), h.Relationship.Update)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
