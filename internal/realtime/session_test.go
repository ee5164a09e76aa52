package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func newSessionServer(t *testing.T, h *Hub, userID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ServeSession(conn, h.Subscribe(userID), SessionConfig{PingInterval: time.Second}, zap.NewNop())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitForSessions(t *testing.T, h *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.SessionCount(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("SessionCount(%q) = %d, want %d", userID, h.SessionCount(userID), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeSessionDeliversEnvelope(t *testing.T) {
	h := NewHub(4, nil)
	srv := newSessionServer(t, h, "u1")

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()
	waitForSessions(t, h, "u1", 1)

	h.Publish(context.Background(), "u1", EventAllRead, AllReadEvent{UnreadCount: 0})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Event string       `json:"event"`
		Data  AllReadEvent `json:"data"`
	}
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if env.Event != EventAllRead || env.Data.UnreadCount != 0 {
		t.Errorf("got %+v", env)
	}
}

func TestServeSessionUnsubscribesOnDisconnect(t *testing.T) {
	h := NewHub(4, nil)
	srv := newSessionServer(t, h, "u1")

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	waitForSessions(t, h, "u1", 1)

	ws.Close()
	waitForSessions(t, h, "u1", 0)
}
