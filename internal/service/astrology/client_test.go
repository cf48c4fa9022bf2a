package astrology

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallSendsBasicAuthAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/astro_details" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user-1:key-1"))
		if auth := r.Header.Get("Authorization"); auth != want {
			t.Errorf("expected %q, got %q", want, auth)
		}
		if lang := r.Header.Get("Accept-Language"); lang != "en" {
			t.Errorf("expected Accept-Language en, got %q", lang)
		}

		var body ChartRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if body.Day != 7 || body.Tzone != 5.5 {
			t.Errorf("unexpected chart request: %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ascendant":"Leo"}`))
	}))
	defer server.Close()

	client := NewClient("user-1", "key-1", server.URL)

	raw, err := client.Call(context.Background(), "astro_details", ChartRequest{
		Day: 7, Month: 11, Year: 1988, Hour: 6, Min: 45,
		Lat: 19.076, Lon: 72.8777, Tzone: 5.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"ascendant":"Leo"}` {
		t.Errorf("expected verbatim upstream JSON, got %s", raw)
	}
}

func TestCallMissingCredentials(t *testing.T) {
	client := NewClient("", "", "https://example.invalid")
	_, err := client.Call(context.Background(), "astro_details", ChartRequest{})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestCallUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte("quota exceeded"))
	}))
	defer server.Close()

	client := NewClient("user-1", "key-1", server.URL)

	_, err := client.Call(context.Background(), "daily_nakshatra_prediction", ChartRequest{})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", upstream.StatusCode)
	}
	if upstream.Endpoint != "daily_nakshatra_prediction" || upstream.Body != "quota exceeded" {
		t.Errorf("unexpected error details: %+v", upstream)
	}
}
