package chat

import "testing"

func TestTextConcatenatesTextPartsOnly(t *testing.T) {
	msg := UIMessage{Role: RoleUser, Parts: []UIPart{
		{Type: "text", Text: "tell me "},
		{Type: "tool-result", Text: "ignored"},
		{Type: "text", Text: "about today"},
	}}
	if got := msg.Text(); got != "tell me about today" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestLatestUserText(t *testing.T) {
	messages := []UIMessage{
		{Role: RoleUser, Parts: []UIPart{{Type: "text", Text: "first"}}},
		{Role: RoleAssistant, Parts: []UIPart{{Type: "text", Text: "reply"}}},
		{Role: RoleUser, Parts: []UIPart{{Type: "text", Text: "second"}}},
	}
	if got := LatestUserText(messages); got != "second" {
		t.Errorf("expected most recent user text, got %q", got)
	}
	if got := LatestUserText(nil); got != "" {
		t.Errorf("expected empty for no messages, got %q", got)
	}
}

func TestTailWindow(t *testing.T) {
	messages := make([]UIMessage, 5)
	for i := range messages {
		messages[i] = UIMessage{ID: string(rune('a' + i))}
	}

	if got := TailWindow(messages, 3); len(got) != 3 || got[0].ID != "c" {
		t.Errorf("unexpected window: %+v", got)
	}
	if got := TailWindow(messages, 10); len(got) != 5 {
		t.Errorf("short history should pass through, got %d", len(got))
	}
	if got := TailWindow(messages, 0); len(got) != 5 {
		t.Errorf("non-positive window should pass through, got %d", len(got))
	}
}
