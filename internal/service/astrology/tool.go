package astrology

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zodiai/backend/internal/service/geo"
)

// ToolName is the function name the model calls.
const ToolName = "astrologyTool"

const toolDescription = "Look up Vedic astrology information (like birth chart basics or a daily prediction) using birth details and place of birth."

// Query types understood by the tool, mapped to upstream endpoints.
const (
	QueryBirthDetails    = "birth_details"
	QueryDailyPrediction = "daily_nakshatra_prediction"
)

var endpointByQueryType = map[string]string{
	QueryBirthDetails:    "astro_details",
	QueryDailyPrediction: "daily_nakshatra_prediction",
}

// Canned payload messages. Returned to the model instead of errors so the
// conversation always continues.
const (
	msgUnavailable = "The external astrology service is temporarily unavailable. Please answer using general Vedic astrology principles only, without external API data."
	msgNoData      = "Astrology service returned no data. Please answer using general Vedic astrology knowledge only."
)

// LookupInput is the schema-validated tool input.
type LookupInput struct {
	Name      string `json:"name" jsonschema:"description=User's first name to personalise the reading"`
	Day       int    `json:"day" jsonschema:"description=Day of birth 1-31"`
	Month     int    `json:"month" jsonschema:"description=Month of birth 1-12"`
	Year      int    `json:"year" jsonschema:"description=Year of birth e.g. 2000"`
	Hour      int    `json:"hour" jsonschema:"description=Hour of birth in 24h format"`
	Minute    int    `json:"minute" jsonschema:"description=Minute of birth"`
	Place     string `json:"place" jsonschema:"description=Place of birth; city plus country if possible e.g. 'Mumbai, India'"`
	QueryType string `json:"queryType,omitempty" jsonschema:"description=Type of astrology query,enum=birth_details,enum=daily_nakshatra_prediction"`
}

func (in *LookupInput) validate() string {
	switch {
	case in.Day < 1 || in.Day > 31:
		return fmt.Sprintf("day %d is out of range 1-31", in.Day)
	case in.Month < 1 || in.Month > 12:
		return fmt.Sprintf("month %d is out of range 1-12", in.Month)
	case in.Year < 1900 || in.Year > 2100:
		return fmt.Sprintf("year %d is out of range 1900-2100", in.Year)
	case in.Hour < 0 || in.Hour > 23:
		return fmt.Sprintf("hour %d is out of range 0-23", in.Hour)
	case in.Minute < 0 || in.Minute > 59:
		return fmt.Sprintf("minute %d is out of range 0-59", in.Minute)
	}
	return ""
}

// Tool resolves the birth place and fetches chart data for the model.
type Tool struct {
	client   *Client
	resolver *geo.Resolver
	logger   *zap.Logger
}

// NewTool wires the astrology lookup into an eino invokable tool, wrapped so
// the model always receives a tool result: failures become structured
// payloads and an empty result is substituted with a synthetic one.
func NewTool(client *Client, resolver *geo.Resolver, logger *zap.Logger) (tool.InvokableTool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tool{client: client, resolver: resolver, logger: logger}

	inner, err := utils.InferTool(ToolName, toolDescription, t.run)
	if err != nil {
		return nil, fmt.Errorf("infer astrology tool: %w", err)
	}
	return &safeTool{inner: inner, logger: logger}, nil
}

// run executes one lookup. User-input and upstream failures are reported as
// payloads the model can relay, never as errors past the tool boundary.
func (t *Tool) run(ctx context.Context, in *LookupInput) (map[string]any, error) {
	if msg := in.validate(); msg != "" {
		return map[string]any{
			"type":    "astrology_error",
			"message": fmt.Sprintf("Invalid birth details: %s. Ask the user to correct them.", msg),
		}, nil
	}

	resolution, err := t.resolver.Resolve(ctx, in.Place)
	if err != nil {
		return map[string]any{
			"type": "astrology_error",
			"message": fmt.Sprintf(
				"I couldn't resolve the place of birth %q. Technical reason: %v. Ask the user to try another nearby city or include the country name.",
				in.Place, err),
		}, nil
	}

	queryType := in.QueryType
	if queryType == "" {
		queryType = QueryBirthDetails
	}
	endpoint, ok := endpointByQueryType[queryType]
	if !ok {
		queryType = QueryBirthDetails
		endpoint = endpointByQueryType[queryType]
	}

	raw, err := t.client.Call(ctx, endpoint, ChartRequest{
		Day:   in.Day,
		Month: in.Month,
		Year:  in.Year,
		Hour:  in.Hour,
		Min:   in.Minute,
		Lat:   resolution.Lat,
		Lon:   resolution.Lon,
		Tzone: resolution.Tzone,
	})
	if err != nil {
		t.logger.Warn("astrology upstream call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return map[string]any{
			"type":    "astrology_error",
			"message": fmt.Sprintf("Astrology API failed while generating your chart. Reason: %v", err),
		}, nil
	}

	return map[string]any{
		"type":            queryType,
		"name":            in.Name,
		"place":           resolution.ResolvedPlace,
		"timezoneId":      resolution.TimezoneID,
		"tzone":           resolution.Tzone,
		"lat":             resolution.Lat,
		"lon":             resolution.Lon,
		"rawAstroDetails": raw,
	}, nil
}

// safeTool guarantees the tool invocation resolves: a thrown error becomes a
// "service unavailable" payload and an empty result becomes a "no data"
// payload, so the model never stalls waiting on a tool call.
type safeTool struct {
	inner  tool.InvokableTool
	logger *zap.Logger
}

func (s *safeTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return s.inner.Info(ctx)
}

func (s *safeTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	out, err := s.inner.InvokableRun(ctx, argumentsInJSON, opts...)
	if err != nil {
		s.logger.Error("astrology tool failed", zap.Error(err))
		return marshalPayload("astrology_unavailable", msgUnavailable), nil
	}
	if strings.TrimSpace(out) == "" {
		return marshalPayload("astrology_no_data", msgNoData), nil
	}
	return out, nil
}

func marshalPayload(payloadType, message string) string {
	raw, err := json.Marshal(map[string]any{
		"ok":      false,
		"type":    payloadType,
		"message": message,
	})
	if err != nil {
		return `{"ok":false,"message":"astrology service unavailable"}`
	}
	return string(raw)
}
