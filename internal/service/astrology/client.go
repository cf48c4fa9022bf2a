// Package astrology wraps the external Vedic chart-calculation API and
// exposes it to the chat model as a safety-wrapped tool.
package astrology

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingCredentials signals absent ASTROLOGY_USER_ID/ASTROLOGY_API_KEY.
var ErrMissingCredentials = errors.New("astrology credentials missing: set ASTROLOGY_USER_ID and ASTROLOGY_API_KEY")

// UpstreamError captures a non-2xx response from the chart API.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if body == "" {
		body = "no body"
	}
	return fmt.Sprintf("astrology %s failed with %d: %s", e.Endpoint, e.StatusCode, body)
}

// ChartRequest is the JSON body every chart endpoint accepts.
type ChartRequest struct {
	Day   int     `json:"day"`
	Month int     `json:"month"`
	Year  int     `json:"year"`
	Hour  int     `json:"hour"`
	Min   int     `json:"min"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Tzone float64 `json:"tzone"`
}

// Client posts Basic-Auth JSON requests to the chart API. The upstream JSON
// is returned verbatim; interpretation is left entirely to the model.
type Client struct {
	userID     string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a chart API client.
func NewClient(userID, apiKey, baseURL string) *Client {
	return &Client{
		userID:     userID,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) authHeader() (string, error) {
	if c.userID == "" || c.apiKey == "" {
		return "", ErrMissingCredentials
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(c.userID + ":" + c.apiKey))
	return "Basic " + encoded, nil
}

// Call posts body to the named endpoint and returns the raw upstream JSON.
func (c *Client) Call(ctx context.Context, endpoint string, body ChartRequest) (json.RawMessage, error) {
	auth, err := c.authHeader()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("astrology: marshal request: %w", err)
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("astrology: create request: %w", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("astrology: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: res.StatusCode, Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("astrology: read response: %w", err)
	}
	return json.RawMessage(raw), nil
}

// SetHTTPClient overrides the HTTP client, used by tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}
