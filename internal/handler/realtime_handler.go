package handler

import (
	"net/http"

	"chattrix/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type RealtimeHandler struct {
	hub      *realtime.Hub
	cfg      realtime.SessionConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, cfg realtime.SessionConfig, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 连接已通过 JWT 鉴权，不再校验 Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Connect GET /ws upgrades to a websocket that receives the caller's events.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID := CallerID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		h.logger.Warn("Websocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	h.logger.Info("Realtime session opened",
		zap.String("user_id", userID),
		zap.String("client_ip", c.ClientIP()),
	)
	realtime.ServeSession(conn, h.hub.Subscribe(userID), h.cfg, h.logger)
}
