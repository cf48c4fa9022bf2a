// Package geo resolves free-text place names to coordinates and a timezone
// offset for the astrology upstream.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyPlace is returned for an empty or all-whitespace query before any
// network call is attempted.
var ErrEmptyPlace = errors.New("empty place string")

// NotFoundError reports a place that neither the geocoder nor the fallback
// table could resolve. It carries the original query for the caller to relay.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not resolve location for %q", e.Query)
}

// Resolution is the ephemeral result of one place lookup.
type Resolution struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	TimezoneID    string  `json:"timezoneId"`
	Tzone         float64 `json:"tzone"`
	ResolvedPlace string  `json:"resolvedPlace"`
}

// The timezone derivation is a deliberate simplification: results inside
// India get IST, everything else UTC. Not a general timezone database.
const (
	istTimezoneID = "Asia/Kolkata"
	istOffset     = 5.5
)

// fallbackTable covers a handful of Indian cities for when the geocoder is
// down or returns nothing. Exact lowercase match only.
var fallbackTable = map[string]Resolution{
	"mumbai":          {Lat: 19.076, Lon: 72.8777, TimezoneID: istTimezoneID, Tzone: istOffset},
	"mumbai, india":   {Lat: 19.076, Lon: 72.8777, TimezoneID: istTimezoneID, Tzone: istOffset},
	"junagadh":        {Lat: 21.5167, Lon: 70.4667, TimezoneID: istTimezoneID, Tzone: istOffset},
	"junagadh, india": {Lat: 21.5167, Lon: 70.4667, TimezoneID: istTimezoneID, Tzone: istOffset},
	"delhi":           {Lat: 28.6139, Lon: 77.209, TimezoneID: istTimezoneID, Tzone: istOffset},
	"new delhi":       {Lat: 28.6139, Lon: 77.209, TimezoneID: istTimezoneID, Tzone: istOffset},
	"bangalore":       {Lat: 12.9716, Lon: 77.5946, TimezoneID: istTimezoneID, Tzone: istOffset},
	"bengaluru":       {Lat: 12.9716, Lon: 77.5946, TimezoneID: istTimezoneID, Tzone: istOffset},
	"ahmedabad":       {Lat: 23.0225, Lon: 72.5714, TimezoneID: istTimezoneID, Tzone: istOffset},
}

// Resolver performs single best-effort place lookups: one geocoder call, then
// the static table. No caching, no retries.
type Resolver struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a resolver against a Nominatim-compatible search endpoint.
func New(baseURL, userAgent string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Resolve maps a free-text place to coordinates and a timezone offset.
func (r *Resolver) Resolve(ctx context.Context, place string) (Resolution, error) {
	query := strings.TrimSpace(place)
	if query == "" {
		return Resolution{}, ErrEmptyPlace
	}

	resolution, err := r.geocode(ctx, query)
	if err == nil {
		return resolution, nil
	}
	r.logger.Warn("geocoder lookup failed, probing fallback table",
		zap.String("query", query), zap.Error(err))

	if fb, ok := fallbackTable[strings.ToLower(query)]; ok {
		fb.ResolvedPlace = query
		return fb, nil
	}

	return Resolution{}, &NotFoundError{Query: query}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (r *Resolver) geocode(ctx context.Context, query string) (Resolution, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1&addressdetails=1",
		r.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Resolution{}, fmt.Errorf("geocode: create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := r.httpClient.Do(req)
	if err != nil {
		return Resolution{}, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Resolution{}, fmt.Errorf("geocode: unexpected status %d", res.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Resolution{}, fmt.Errorf("geocode: read response: %w", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return Resolution{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(results) == 0 {
		return Resolution{}, fmt.Errorf("geocode: no results for %q", query)
	}

	best := results[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return Resolution{}, fmt.Errorf("geocode: bad latitude %q: %w", best.Lat, err)
	}
	lon, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return Resolution{}, fmt.Errorf("geocode: bad longitude %q: %w", best.Lon, err)
	}

	resolution := Resolution{
		Lat:           lat,
		Lon:           lon,
		TimezoneID:    "UTC",
		Tzone:         0,
		ResolvedPlace: best.DisplayName,
	}
	if strings.ToLower(best.Address.CountryCode) == "in" {
		resolution.TimezoneID = istTimezoneID
		resolution.Tzone = istOffset
	}
	return resolution, nil
}

// SetHTTPClient overrides the HTTP client, used by tests.
func (r *Resolver) SetHTTPClient(c *http.Client) {
	if c != nil {
		r.httpClient = c
	}
}
