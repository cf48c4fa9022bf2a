package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Astrology AstrologyConfig
	Geo       GeoConfig
	Search    SearchConfig
	Sheets    SheetsConfig
	Redis     RedisConfig
	Storage   StorageConfig
}

// Load reads the full configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Astrology: loadAstrologyConfig(),
		Geo:       loadGeoConfig(),
		Search:    loadSearchConfig(),
		Sheets:    loadSheetsConfig(),
		Redis:     loadRedisConfig(),
		Storage:   loadStorageConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat model provider.
type AIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel builds a tool-calling chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: set OPENAI_API_KEY and OPENAI_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &openai.ChatModelConfig{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   c.MaxTokens,
	}

	return openai.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("OPENAI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("OPENAI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("OPENAI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// AstrologyConfig carries the Basic-Auth credentials for the chart API.
type AstrologyConfig struct {
	UserID  string
	APIKey  string
	BaseURL string
}

// Enabled reports whether both credential halves are present.
func (c AstrologyConfig) Enabled() bool {
	return c.UserID != "" && c.APIKey != ""
}

func loadAstrologyConfig() AstrologyConfig {
	return AstrologyConfig{
		UserID:  strings.TrimSpace(os.Getenv("ASTROLOGY_USER_ID")),
		APIKey:  strings.TrimSpace(os.Getenv("ASTROLOGY_API_KEY")),
		BaseURL: getEnvOrDefault("ASTROLOGY_BASE_URL", "https://json.astrologyapi.com/v1"),
	}
}

// GeoConfig points at the geocoding endpoint.
type GeoConfig struct {
	BaseURL   string
	UserAgent string
}

func loadGeoConfig() GeoConfig {
	return GeoConfig{
		BaseURL:   getEnvOrDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		UserAgent: getEnvOrDefault("GEOCODER_USER_AGENT", "ZodiAI/1.0 (astrology assistant)"),
	}
}

// SearchConfig configures the web-search tool.
type SearchConfig struct {
	APIKey  string
	BaseURL string
}

// Enabled reports whether the search key is present.
func (c SearchConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadSearchConfig() SearchConfig {
	return SearchConfig{
		APIKey:  strings.TrimSpace(os.Getenv("SEARCH_API_KEY")),
		BaseURL: getEnvOrDefault("SEARCH_BASE_URL", "https://api.tavily.com"),
	}
}

// SheetsConfig carries the spreadsheet sink service-account credentials.
type SheetsConfig struct {
	SheetID     string
	ClientEmail string
	PrivateKey  string
}

// Enabled reports whether the sheet sink can be constructed.
func (c SheetsConfig) Enabled() bool {
	return c.SheetID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

func loadSheetsConfig() SheetsConfig {
	// Private keys pasted into env files commonly carry literal \n sequences.
	key := strings.ReplaceAll(os.Getenv("GOOGLE_PRIVATE_KEY"), `\n`, "\n")
	return SheetsConfig{
		SheetID:     strings.TrimSpace(os.Getenv("GOOGLE_SHEET_ID")),
		ClientEmail: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_EMAIL")),
		PrivateKey:  key,
	}
}

// RedisConfig carries the key-value sink connection string.
type RedisConfig struct {
	URL     string
	ListKey string
}

// Enabled reports whether a connection string was supplied.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func loadRedisConfig() RedisConfig {
	url := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if url == "" {
		url = strings.TrimSpace(os.Getenv("KV_URL"))
	}
	return RedisConfig{
		URL:     url,
		ListKey: getEnvOrDefault("REDIS_LIST_KEY", "zodiai:logs"),
	}
}

// StorageConfig locates the on-disk data directory shared by the session
// store, the CSV mirror and the vector knowledge base.
type StorageConfig struct {
	DataDir string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir: getEnvOrDefault("DATA_DIR", "data"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
