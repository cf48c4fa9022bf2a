package utils

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

// parseEvents splits an SSE body into its decoded data frames, excluding the
// [DONE] terminator.
func parseEvents(t *testing.T, body string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			continue
		}
		var event StreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("invalid event frame %q: %v", payload, err)
		}
		events = append(events, event)
	}
	return events
}

func TestNewStreamWriterSetsSSEHeaders(t *testing.T) {
	resp := httptest.NewRecorder()

	if _, err := NewStreamWriter(resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", got)
	}
	if got := resp.Header().Get("X-Vercel-AI-UI-Message-Stream"); got != "v1" {
		t.Errorf("expected stream protocol header v1, got %q", got)
	}
}

func TestWriteMessageEmitsCompleteSequence(t *testing.T) {
	resp := httptest.NewRecorder()
	writer, err := NewStreamWriter(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writer.WriteMessage("msg-1", "hello there")

	body := resp.Body.String()
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("stream missing [DONE] terminator: %q", body)
	}

	events := parseEvents(t, body)
	wantTypes := []string{"start", "text-start", "text-delta", "text-end", "finish"}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantTypes), len(events), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d: expected type %q, got %q", i, want, events[i].Type)
		}
	}
	if events[2].ID != "msg-1" || events[2].Delta != "hello there" {
		t.Errorf("unexpected delta event: %+v", events[2])
	}
}

func TestStreamedDeltasCarryTextID(t *testing.T) {
	resp := httptest.NewRecorder()
	writer, err := NewStreamWriter(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writer.Start()
	writer.TextStart("t1")
	writer.TextDelta("t1", "chunk one ")
	writer.TextDelta("t1", "chunk two")
	writer.TextEnd("t1")
	writer.Finish()
	writer.Done()

	events := parseEvents(t, resp.Body.String())
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	for _, event := range events[1:5] {
		if event.ID != "t1" {
			t.Errorf("expected text id t1, got %q in %+v", event.ID, event)
		}
	}
}
