package astrology

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zodiai/backend/internal/service/geo"
)

// deadServer returns a base URL that refuses connections.
func deadServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()
	return url
}

func TestRunRejectsOutOfRangeBirthDetails(t *testing.T) {
	tl := &Tool{
		client:   NewClient("user-1", "key-1", deadServer(t)),
		resolver: geo.New(deadServer(t), "test-agent", nil),
		logger:   zap.NewNop(),
	}

	cases := []struct {
		name  string
		in    LookupInput
		field string
	}{
		{"day", LookupInput{Day: 32, Month: 1, Year: 2000, Hour: 0, Minute: 0}, "day"},
		{"month", LookupInput{Day: 1, Month: 13, Year: 2000, Hour: 0, Minute: 0}, "month"},
		{"year", LookupInput{Day: 1, Month: 1, Year: 1850, Hour: 0, Minute: 0}, "year"},
		{"hour", LookupInput{Day: 1, Month: 1, Year: 2000, Hour: 24, Minute: 0}, "hour"},
		{"minute", LookupInput{Day: 1, Month: 1, Year: 2000, Hour: 0, Minute: 60}, "minute"},
	}
	for _, tc := range cases {
		out, err := tl.run(context.Background(), &tc.in)
		if err != nil {
			t.Fatalf("%s: validation must not return an error: %v", tc.name, err)
		}
		if out["type"] != "astrology_error" {
			t.Errorf("%s: expected astrology_error payload, got %+v", tc.name, out)
		}
		msg, _ := out["message"].(string)
		if !strings.Contains(msg, tc.field) {
			t.Errorf("%s: expected field named in message, got %q", tc.name, msg)
		}
	}
}

func TestRunReportsUnresolvablePlace(t *testing.T) {
	tl := &Tool{
		client:   NewClient("user-1", "key-1", deadServer(t)),
		resolver: geo.New(deadServer(t), "test-agent", nil),
		logger:   zap.NewNop(),
	}

	out, err := tl.run(context.Background(), &LookupInput{
		Day: 7, Month: 11, Year: 1988, Hour: 6, Minute: 45, Place: "Nowhereville",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["type"] != "astrology_error" {
		t.Fatalf("expected astrology_error payload, got %+v", out)
	}
	msg, _ := out["message"].(string)
	if !strings.Contains(msg, "Nowhereville") {
		t.Errorf("expected place echoed in message, got %q", msg)
	}
}

func TestRunDefaultsToBirthDetailsEndpoint(t *testing.T) {
	var calledEndpoint string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledEndpoint = r.URL.Path
		w.Write([]byte(`{"sign":"Scorpio"}`))
	}))
	defer upstream.Close()

	tl := &Tool{
		client: NewClient("user-1", "key-1", upstream.URL),
		// Fallback table resolves Mumbai with the geocoder down.
		resolver: geo.New(deadServer(t), "test-agent", nil),
		logger:   zap.NewNop(),
	}

	out, err := tl.run(context.Background(), &LookupInput{
		Name: "Asha", Day: 7, Month: 11, Year: 1988, Hour: 6, Minute: 45,
		Place: "Mumbai",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calledEndpoint != "/astro_details" {
		t.Errorf("expected default endpoint astro_details, got %q", calledEndpoint)
	}
	if out["type"] != QueryBirthDetails {
		t.Errorf("expected birth_details payload type, got %v", out["type"])
	}
	if out["tzone"] != 5.5 || out["lat"] != 19.076 {
		t.Errorf("expected resolved coordinates in payload, got %+v", out)
	}
	if raw, ok := out["rawAstroDetails"].(json.RawMessage); !ok || string(raw) != `{"sign":"Scorpio"}` {
		t.Errorf("expected verbatim upstream JSON, got %v", out["rawAstroDetails"])
	}
}

func TestRunMapsDailyPredictionEndpoint(t *testing.T) {
	var calledEndpoint string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledEndpoint = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	tl := &Tool{
		client:   NewClient("user-1", "key-1", upstream.URL),
		resolver: geo.New(deadServer(t), "test-agent", nil),
		logger:   zap.NewNop(),
	}

	_, err := tl.run(context.Background(), &LookupInput{
		Day: 7, Month: 11, Year: 1988, Hour: 6, Minute: 45,
		Place: "Delhi", QueryType: QueryDailyPrediction,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calledEndpoint != "/daily_nakshatra_prediction" {
		t.Errorf("expected daily prediction endpoint, got %q", calledEndpoint)
	}
}

type failingTool struct{}

func (failingTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: ToolName}, nil
}

func (failingTool) InvokableRun(context.Context, string, ...tool.Option) (string, error) {
	return "", errors.New("boom")
}

type emptyTool struct{ failingTool }

func (emptyTool) InvokableRun(context.Context, string, ...tool.Option) (string, error) {
	return "   ", nil
}

func TestSafeToolConvertsErrorToPayload(t *testing.T) {
	safe := &safeTool{inner: failingTool{}, logger: zap.NewNop()}

	out, err := safe.InvokableRun(context.Background(), `{}`)
	if err != nil {
		t.Fatalf("safe tool must never return an error: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["type"] != "astrology_unavailable" || payload["ok"] != false {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestSafeToolSubstitutesEmptyOutput(t *testing.T) {
	safe := &safeTool{inner: emptyTool{}, logger: zap.NewNop()}

	out, err := safe.InvokableRun(context.Background(), `{}`)
	if err != nil {
		t.Fatalf("safe tool must never return an error: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["type"] != "astrology_no_data" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}
