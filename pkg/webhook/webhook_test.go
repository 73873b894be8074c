package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewNotifierDisabledWithoutURL(t *testing.T) {
	if n := NewNotifier(""); n != nil {
		t.Fatal("expected nil notifier for empty url")
	}
}

func TestNotifyPostsJSON(t *testing.T) {
	var got RegistrationEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	event := RegistrationEvent{
		RegistrationID: "rec1",
		Email:          "a@b.com",
		EventID:        "ev1",
		Status:         "Pending",
		Source:         "portal-registration",
		ConfirmToken:   "tok",
		ConfirmURL:     "https://example.com/confirm?token=tok",
	}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got != event {
		t.Fatalf("payload = %+v, want %+v", got, event)
	}
}

func TestNotifyReportsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewNotifier(srv.URL).Notify(context.Background(), RegistrationEvent{}); err == nil {
		t.Fatal("expected error for 502")
	}
}
