package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service needs.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Brain  BrainConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	brain, err := loadBrainConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Brain: brain}, nil
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
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat model settings.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
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

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// BrainConfig tunes the orchestration core.
type BrainConfig struct {
	// ActiveCapacity bounds the active conversation tier.
	ActiveCapacity int
	// ProfileThreshold promotes queries to profile status on semantic relevance.
	ProfileThreshold float64
	// ExternalThreshold is the coverage score under which external search kicks in.
	ExternalThreshold float64
	// ExternalEnabled toggles the external-source context at startup.
	ExternalEnabled bool
	// HistoryMaxLength is the character budget for formatted history.
	HistoryMaxLength int
	// RecentNoteFallback is how many recent notes ground a query with no hits.
	RecentNoteFallback int
	// MediatorTimeout bounds a single mediator handler call.
	MediatorTimeout time.Duration
	// ConversationDB is the SQLite path for conversations; empty keeps them in memory.
	ConversationDB string
}

func loadBrainConfig() (BrainConfig, error) {
	cfg := BrainConfig{
		ActiveCapacity:     20,
		ProfileThreshold:   0.7,
		ExternalThreshold:  0.4,
		HistoryMaxLength:   4000,
		RecentNoteFallback: 5,
		MediatorTimeout:    30 * time.Second,
		ConversationDB:     strings.TrimSpace(os.Getenv("BRAIN_CONVERSATION_DB")),
	}

	if v, err := parseOptionalIntEnv("BRAIN_ACTIVE_CAPACITY"); err != nil {
		return BrainConfig{}, err
	} else if v != nil {
		if *v < 1 {
			return BrainConfig{}, fmt.Errorf("BRAIN_ACTIVE_CAPACITY must be positive, got %d", *v)
		}
		cfg.ActiveCapacity = *v
	}

	if v, err := parseOptionalFloatEnv("BRAIN_PROFILE_THRESHOLD"); err != nil {
		return BrainConfig{}, err
	} else if v != nil {
		cfg.ProfileThreshold = *v
	}

	if v, err := parseOptionalFloatEnv("BRAIN_EXTERNAL_THRESHOLD"); err != nil {
		return BrainConfig{}, err
	} else if v != nil {
		cfg.ExternalThreshold = *v
	}

	enabled, err := parseBoolEnv("BRAIN_EXTERNAL_ENABLED", true)
	if err != nil {
		return BrainConfig{}, err
	}
	cfg.ExternalEnabled = enabled

	if v, err := parseOptionalIntEnv("BRAIN_HISTORY_MAX_LENGTH"); err != nil {
		return BrainConfig{}, err
	} else if v != nil {
		cfg.HistoryMaxLength = *v
	}

	if v, err := parseOptionalIntEnv("BRAIN_RECENT_NOTE_FALLBACK"); err != nil {
		return BrainConfig{}, err
	} else if v != nil {
		cfg.RecentNoteFallback = *v
	}

	if v, err := parseOptionalIntEnv("BRAIN_MEDIATOR_TIMEOUT_SECONDS"); err != nil {
		return BrainConfig{}, err
	} else if v != nil {
		cfg.MediatorTimeout = time.Duration(*v) * time.Second
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
