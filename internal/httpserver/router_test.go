package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chattrix/internal/handler"
	"chattrix/internal/model"
	"chattrix/internal/realtime"
	"chattrix/internal/repository"
	"chattrix/internal/service"
	"chattrix/pkg/trace"
	"chattrix/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

type testEnv struct {
	router *Router
	svc    *service.NotificationService
	hub    *realtime.Hub
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.MustExec(`INSERT INTO users (id, username, full_name, profile_image) VALUES
		('u1', 'first', 'User One', 'one.png'),
		('u2', 'second', 'User Two', 'two.png')`)

	log := zap.NewNop()
	hub := realtime.NewHub(8, log)
	svc := service.NewNotificationService(repository.NewSQLiteNotificationRepository(db), hub, log,
		service.Options{EnforceOwnership: true})
	relSvc := service.NewRelationshipService(repository.NewSQLiteRelationshipRepository(db), log)

	router := NewRouter(log, Handlers{
		Notification: handler.NewNotificationHandler(svc, log),
		Relationship: handler.NewRelationshipHandler(relSvc, log),
		Realtime:     handler.NewRealtimeHandler(hub, realtime.SessionConfig{PingInterval: time.Second}, log),
	}, svc, testSecret)

	return &testEnv{router: router, svc: svc, hub: hub}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.router.Engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(t *testing.T, in model.NewNotification) *model.Notification {
	t.Helper()
	n, err := e.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestHealthEndpoints(t *testing.T) {
	e := setupTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := e.do(t, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}
}

func TestTraceHeader(t *testing.T) {
	e := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName, "abc123")
	w := httptest.NewRecorder()
	e.router.Engine.ServeHTTP(w, req)
	if got := w.Header().Get(trace.HeaderName); got != "abc123" {
		t.Errorf("trace header = %q, want abc123", got)
	}

	w = e.do(t, http.MethodGet, "/healthz", "", nil)
	if len(w.Header().Get(trace.HeaderName)) != 32 {
		t.Errorf("generated trace id = %q", w.Header().Get(trace.HeaderName))
	}
}

func TestAuthRequired(t *testing.T) {
	e := setupTestRouter(t)

	if w := e.do(t, http.MethodGet, "/api/notifications", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/notifications", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", w.Code)
	}
	other, _ := util.GenerateJWT("u1", "user", "other-secret", time.Hour)
	if w := e.do(t, http.MethodGet, "/api/notifications", other, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret = %d", w.Code)
	}
}

func TestListAndUnreadCount(t *testing.T) {
	e := setupTestRouter(t)
	e.seed(t, model.NewNotification{Recipient: "u1", Sender: "u2", Kind: model.KindLike})
	e.seed(t, model.NewNotification{Recipient: "u2", Kind: model.KindSystem})
	tok := token(t, "u1", "user")

	w := e.do(t, http.MethodGet, "/api/notifications", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d %s", w.Code, w.Body)
	}
	var list []model.Notification
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Sender == nil || list[0].Sender.Username != "second" {
		t.Errorf("list = %+v", list)
	}

	w = e.do(t, http.MethodGet, "/api/notifications/unread-count", tok, nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"count":1}` {
		t.Errorf("unread-count = %d %s", w.Code, w.Body)
	}

	if w := e.do(t, http.MethodGet, "/api/notifications?limit=abc", tok, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", w.Code)
	}
}

func TestMarkReadAndDelete(t *testing.T) {
	e := setupTestRouter(t)
	n := e.seed(t, model.NewNotification{Recipient: "u1", Kind: model.KindComment, Content: "Nice!"})
	owner := token(t, "u1", "user")
	stranger := token(t, "u2", "user")

	if w := e.do(t, http.MethodPut, "/api/notifications/"+n.ID+"/read", stranger, nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger mark read = %d", w.Code)
	}

	w := e.do(t, http.MethodPut, "/api/notifications/"+n.ID+"/read", owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("mark read = %d %s", w.Code, w.Body)
	}
	var updated model.Notification
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil || !updated.Read {
		t.Errorf("updated = %+v, %v", updated, err)
	}

	if w := e.do(t, http.MethodPut, "/api/notifications/read-all", owner, nil); w.Code != http.StatusOK {
		t.Errorf("read-all = %d", w.Code)
	}

	if w := e.do(t, http.MethodDelete, "/api/notifications/"+n.ID, stranger, nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger delete = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/api/notifications/"+n.ID, owner, nil); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/api/notifications/"+n.ID, owner, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/api/notifications/missing/read", owner, nil); w.Code != http.StatusNotFound {
		t.Errorf("mark missing = %d", w.Code)
	}
}

func TestInternalCreateRequiresServiceRole(t *testing.T) {
	e := setupTestRouter(t)
	body := model.NewNotification{Recipient: "u1", Sender: "u2", Kind: model.KindFollow}

	if w := e.do(t, http.MethodPost, "/api/internal/notifications", token(t, "u2", "user"), body); w.Code != http.StatusForbidden {
		t.Errorf("user role = %d", w.Code)
	}

	svcTok := token(t, "post-service", "service")
	w := e.do(t, http.MethodPost, "/api/internal/notifications", svcTok, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("service role = %d %s", w.Code, w.Body)
	}

	bad := e.do(t, http.MethodPost, "/api/internal/notifications", svcTok, model.NewNotification{Recipient: "u1", Kind: "invalid"})
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid kind = %d", bad.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(bad.Body.Bytes(), &resp); err != nil || resp["field"] != "type" {
		t.Errorf("invalid kind body = %s", bad.Body)
	}
}

func TestRelationshipRoutes(t *testing.T) {
	e := setupTestRouter(t)
	tok := token(t, "u1", "user")

	w := e.do(t, http.MethodGet, "/api/relationships/u2", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get default = %d %s", w.Code, w.Body)
	}

	w = e.do(t, http.MethodPatch, "/api/relationships/u2", tok, map[string]any{"isCloseFriend": true})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d %s", w.Code, w.Body)
	}
	w = e.do(t, http.MethodPatch, "/api/relationships/u2", tok, map[string]any{"muteSettings": map[string]bool{"stories": true}})
	if w.Code != http.StatusOK {
		t.Fatalf("second patch = %d %s", w.Code, w.Body)
	}
	var rel model.Relationship
	if err := json.Unmarshal(w.Body.Bytes(), &rel); err != nil {
		t.Fatal(err)
	}
	if !rel.IsCloseFriend || !rel.Mute.Stories {
		t.Errorf("partial update lost fields: %+v", rel)
	}

	if w := e.do(t, http.MethodPatch, "/api/relationships/u1", tok, map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("self relationship = %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/relationships", tok, nil)
	var list []model.Relationship
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Errorf("list = %s", w.Body)
	}
}

func TestWebsocketReceivesEvents(t *testing.T) {
	e := setupTestRouter(t)
	srv := httptest.NewServer(e.router.Engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token(t, "u1", "user")
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.hub.SessionCount("u1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	n := e.seed(t, model.NewNotification{Recipient: "u1", Sender: "u2", Kind: model.KindLike})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Event string             `json:"event"`
		Data  model.Notification `json:"data"`
	}
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if env.Event != realtime.EventNotificationNew || env.Data.ID != n.ID {
		t.Errorf("got %+v", env)
	}
}

func TestWebsocketRejectsAnonymous(t *testing.T) {
	e := setupTestRouter(t)
	srv := httptest.NewServer(e.router.Engine)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("Dial() error = %v, want ErrBadHandshake", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
