package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jab-consulting/portal/internal/models"
)

type fakeLister struct {
	sessions  []models.Session
	err       error
	direction string
}

func (f *fakeLister) ListAll(ctx context.Context, direction string) ([]models.Session, error) {
	f.direction = direction
	return f.sessions, f.err
}

func newSessionsRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/sessions", h.List)
	r.POST("/api/sessions/sync", h.TriggerSync)
	return r
}

func TestListSessions(t *testing.T) {
	store := &fakeLister{sessions: []models.Session{
		{ID: "past", Title: "Old", EndTime: "2026-03-01T10:00:00Z"},
		{ID: "future", Title: "New", EndTime: "2026-03-20T10:00:00Z"},
	}}
	h := NewHandler(store, nil, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	r := newSessionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if store.direction != "asc" {
		t.Fatalf("direction = %q, want asc for upcoming", store.direction)
	}
	var resp struct {
		Data struct {
			Events []models.Event `json:"events"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Events) != 1 || resp.Data.Events[0].ID != "future" {
		t.Fatalf("events = %+v, want future only", resp.Data.Events)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions?type=past", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("past status = %d", w.Code)
	}
	if store.direction != "desc" {
		t.Fatalf("direction = %q, want desc for past", store.direction)
	}
}

func TestListSessionsStoreError(t *testing.T) {
	h := NewHandler(&fakeLister{err: errors.New("store down")}, nil, nil)
	r := newSessionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestTriggerSyncWithoutQueue(t *testing.T) {
	h := NewHandler(&fakeLister{}, nil, nil)
	r := newSessionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions/sync", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without queue", w.Code)
	}
}
