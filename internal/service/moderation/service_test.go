package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckFlaggedMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		var payload moderationRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if payload.Input != "bad text" {
			t.Errorf("expected input forwarded, got %q", payload.Input)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"flagged":true}]}`))
	}))
	defer server.Close()

	svc := New(server.URL, "sk-test", nil)

	verdict := svc.Check(context.Background(), "bad text")
	if !verdict.Flagged {
		t.Fatal("expected flagged verdict")
	}
	if verdict.DenialMessage != DefaultDenialMessage {
		t.Errorf("expected default denial message, got %q", verdict.DenialMessage)
	}
}

func TestCheckCleanMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"flagged":false}]}`))
	}))
	defer server.Close()

	svc := New(server.URL, "sk-test", nil)
	if verdict := svc.Check(context.Background(), "hello"); verdict.Flagged {
		t.Fatal("expected clean verdict")
	}
}

func TestCheckFailsOpenOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := New(server.URL, "sk-test", nil)
	if verdict := svc.Check(context.Background(), "hello"); verdict.Flagged {
		t.Fatal("classifier outage must not flag messages")
	}
}

func TestCheckFailsOpenOnUnreachableEndpoint(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	svc := New(url, "sk-test", nil)
	if verdict := svc.Check(context.Background(), "hello"); verdict.Flagged {
		t.Fatal("unreachable classifier must not flag messages")
	}
}
