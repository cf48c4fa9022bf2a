// Package search provides the two retrieval tools offered to the chat model:
// a hosted web search and an embedded vector knowledge base.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"go.uber.org/zap"
)

// WebToolName is the function name the model calls for web search.
const WebToolName = "webSearch"

const webToolDescription = "Search the web for up-to-date information. Use only when the knowledge base has no answer."

// WebSearcher calls a hosted search API.
type WebSearcher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebSearcher builds a web search client.
func NewWebSearcher(baseURL, apiKey string, logger *zap.Logger) *WebSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type webSearchInput struct {
	Query string `json:"query" jsonschema:"description=The search query"`
}

type webSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// WebResult is one search hit passed back to the model.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type webSearchResponse struct {
	Results []WebResult `json:"results"`
}

// Tool wraps the searcher as an eino invokable tool.
func (w *WebSearcher) Tool() (tool.InvokableTool, error) {
	t, err := utils.InferTool(WebToolName, webToolDescription, w.run)
	if err != nil {
		return nil, fmt.Errorf("infer web search tool: %w", err)
	}
	return t, nil
}

func (w *WebSearcher) run(ctx context.Context, in *webSearchInput) (map[string]any, error) {
	results, err := w.Search(ctx, in.Query)
	if err != nil {
		w.logger.Warn("web search failed", zap.String("query", in.Query), zap.Error(err))
		return map[string]any{
			"ok":      false,
			"message": "Web search is temporarily unavailable. Answer from your own knowledge and say so.",
		}, nil
	}
	return map[string]any{"ok": true, "results": results}, nil
}

// Search performs one query against the search API.
func (w *WebSearcher) Search(ctx context.Context, query string) ([]WebResult, error) {
	body, err := json.Marshal(webSearchRequest{Query: query, MaxResults: 5})
	if err != nil {
		return nil, fmt.Errorf("websearch: marshal request: %w", err)
	}

	url := w.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	res, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("websearch: unexpected status %d from %s: %s", res.StatusCode, url, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("websearch: read response: %w", err)
	}

	var payload webSearchResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}
	return payload.Results, nil
}

// SetHTTPClient overrides the HTTP client, used by tests.
func (w *WebSearcher) SetHTTPClient(c *http.Client) {
	if c != nil {
		w.httpClient = c
	}
}
