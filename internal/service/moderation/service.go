// Package moderation gates user text through the provider's content
// classifier before it reaches the chat model.
//
// Policy on classifier outage: fail open. A moderation endpoint failure is
// logged and the text treated as not flagged, so a classifier outage cannot
// silently block all chat.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultDenialMessage is streamed to the user when a message is flagged.
const DefaultDenialMessage = "Your message violates our guidelines. I can't answer that."

// Verdict is the outcome of checking one user message.
type Verdict struct {
	Flagged       bool
	DenialMessage string
}

type moderationRequest struct {
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

// Service calls the provider moderation endpoint.
type Service struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a moderation service against an OpenAI-compatible /moderations
// endpoint.
func New(baseURL, apiKey string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Check classifies the given text. Errors never propagate: the verdict fails
// open and the cause is logged for operators.
func (s *Service) Check(ctx context.Context, text string) Verdict {
	flagged, err := s.moderate(ctx, text)
	if err != nil {
		s.logger.Error("moderation check failed, failing open", zap.Error(err))
		return Verdict{Flagged: false}
	}
	if !flagged {
		return Verdict{Flagged: false}
	}
	return Verdict{Flagged: true, DenialMessage: DefaultDenialMessage}
}

func (s *Service) moderate(ctx context.Context, text string) (bool, error) {
	body, err := json.Marshal(moderationRequest{Input: text})
	if err != nil {
		return false, fmt.Errorf("moderation: marshal request: %w", err)
	}

	url := s.baseURL + "/moderations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("moderation: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("moderation: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return false, fmt.Errorf("moderation: unexpected status %d from %s: %s", res.StatusCode, url, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("moderation: read response: %w", err)
	}

	var payload moderationResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, fmt.Errorf("moderation: decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		return false, errors.New("moderation: no results in response")
	}
	return payload.Results[0].Flagged, nil
}

// SetHTTPClient overrides the HTTP client, used by tests.
func (s *Service) SetHTTPClient(c *http.Client) {
	if c != nil {
		s.httpClient = c
	}
}
