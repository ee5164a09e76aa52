package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SessionConfig tunes the websocket pumps.
type SessionConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
}

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	maxClientFrame      = 1024
)

func (c SessionConfig) withDefaults() SessionConfig {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	return c
}

// ServeSession streams sub to conn until either side goes away. It blocks,
// and closes both sub and conn before returning.
func ServeSession(conn *websocket.Conn, sub *Subscription, cfg SessionConfig, log *zap.Logger) {
	cfg = cfg.withDefaults()
	log = log.With(zap.String("user_id", sub.UserID()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		readPump(conn, cfg)
	}()

	writePump(conn, sub, cfg, done, log)

	sub.Close()
	conn.Close()
	<-done
	log.Info("Realtime session ended")
}

// readPump discards client frames; it only exists to process control
// frames and notice disconnects.
func readPump(conn *websocket.Conn, cfg SessionConfig) {
	pongWait := cfg.PingInterval * 2
	conn.SetReadLimit(maxClientFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription, cfg SessionConfig, done <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.Messages():
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn("Failed to write realtime event", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("Realtime ping failed", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
