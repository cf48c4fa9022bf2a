package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// StreamEvent is one frame of the UI message-event protocol the web client
// consumes: start, text-start, text-delta, text-end, finish.
type StreamEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Delta string `json:"delta,omitempty"`
}

// StreamWriter emits UI message events as Server-Sent Events.
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStreamWriter prepares the response for SSE streaming.
func NewStreamWriter(w http.ResponseWriter) (*StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Vercel-AI-UI-Message-Stream", "v1")

	return &StreamWriter{w: w, flusher: flusher}, nil
}

// Start opens a streamed message.
func (s *StreamWriter) Start() {
	s.send(StreamEvent{Type: "start"})
}

// TextStart opens a text part.
func (s *StreamWriter) TextStart(id string) {
	s.send(StreamEvent{Type: "text-start", ID: id})
}

// TextDelta appends text to an open text part.
func (s *StreamWriter) TextDelta(id, delta string) {
	s.send(StreamEvent{Type: "text-delta", ID: id, Delta: delta})
}

// TextEnd closes a text part.
func (s *StreamWriter) TextEnd(id string) {
	s.send(StreamEvent{Type: "text-end", ID: id})
}

// Finish closes the streamed message.
func (s *StreamWriter) Finish() {
	s.send(StreamEvent{Type: "finish"})
}

// Done writes the stream terminator.
func (s *StreamWriter) Done() {
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

// WriteMessage emits one complete message (start through finish) holding a
// single text part. Used for canned denial and fallback responses.
func (s *StreamWriter) WriteMessage(id, text string) {
	s.Start()
	s.TextStart(id)
	s.TextDelta(id, text)
	s.TextEnd(id)
	s.Finish()
	s.Done()
}

func (s *StreamWriter) send(event StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	s.flusher.Flush()
}
