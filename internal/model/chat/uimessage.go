package chat

import "strings"

// UIMessage mirrors the message shape the web client posts: a role plus an
// ordered list of typed parts. Only text parts are meaningful server-side.
type UIMessage struct {
	ID    string   `json:"id,omitempty"`
	Role  string   `json:"role"`
	Parts []UIPart `json:"parts"`
}

// UIPart is one typed fragment of a UI message.
type UIPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text concatenates the message's text parts in order.
func (m UIMessage) Text() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// LatestUserText returns the text of the most recent user message, or "" when
// the history holds none.
func LatestUserText(messages []UIMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Text()
		}
	}
	return ""
}

// TailWindow returns at most the last n messages.
func TailWindow(messages []UIMessage, n int) []UIMessage {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
