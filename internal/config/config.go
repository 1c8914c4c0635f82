package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the FeedbackHub server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	AI        AIConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel slog.Level
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	ExpiresIn time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Window is a fixed-window request budget.
type Window struct {
	Limit  int
	Period time.Duration
}

type RateLimitConfig struct {
	API  Window
	Auth Window
	AI   Window
}

type AIConfig struct {
	Provider          string
	InferenceTimeout  time.Duration
	ValidationPolicy  string
	AnnotationRPS     float64
	AnnotationTimeout time.Duration
	Gemini            GeminiConfig
	Ollama            OllamaConfig
	VLLM              VLLMConfig
	OpenAI            OpenAIConfig
	Anthropic         AnthropicConfig
	Bedrock           BedrockConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type BedrockConfig struct {
	Region string
	Model  string
}

var validProviders = map[string]bool{
	"gemini":    true,
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"anthropic": true,
	"bedrock":   true,
}

var validPolicies = map[string]bool{
	"strict":  true,
	"lenient": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("FEEDBACKHUB_PORT", 8080),
			Env:      envString("FEEDBACKHUB_ENV", "development"),
			LogLevel: envLogLevel("LOG_LEVEL", slog.LevelInfo),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			ExpiresIn: envDuration("JWT_EXPIRES_IN", 24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			API: Window{
				Limit:  envInt("RATE_LIMIT_API_MAX", 100),
				Period: envDuration("RATE_LIMIT_API_WINDOW", 15*time.Minute),
			},
			Auth: Window{
				Limit:  envInt("RATE_LIMIT_AUTH_MAX", 10),
				Period: envDuration("RATE_LIMIT_AUTH_WINDOW", time.Hour),
			},
			AI: Window{
				Limit:  envInt("RATE_LIMIT_AI_MAX", 20),
				Period: envDuration("RATE_LIMIT_AI_WINDOW", time.Hour),
			},
		},
		AI: AIConfig{
			Provider:          os.Getenv("AI_PROVIDER"),
			InferenceTimeout:  envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			ValidationPolicy:  envString("AI_VALIDATION_POLICY", "strict"),
			AnnotationRPS:     envFloat("AI_ANNOTATION_RPS", 1),
			AnnotationTimeout: envDurationSecs("AI_ANNOTATION_TIMEOUT_SECS", 2*time.Minute),
			Gemini: GeminiConfig{
				APIKey: os.Getenv("GEMINI_API_KEY"),
				Model:  envString("GEMINI_MODEL", "gemini-1.5-pro"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Model:   envString("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			},
			Bedrock: BedrockConfig{
				Region: envString("BEDROCK_REGION", "us-east-1"),
				Model:  envString("BEDROCK_MODEL", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.ExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.Auth.ExpiresIn)
	}

	for name, w := range map[string]Window{"API": c.RateLimit.API, "AUTH": c.RateLimit.Auth, "AI": c.RateLimit.AI} {
		if w.Limit <= 0 || w.Period <= 0 {
			return fmt.Errorf("RATE_LIMIT_%s_MAX and RATE_LIMIT_%s_WINDOW must be positive", name, name)
		}
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of gemini, ollama, vllm, openai, anthropic, bedrock; got %q", c.AI.Provider)
	}
	if !validPolicies[c.AI.ValidationPolicy] {
		return fmt.Errorf("AI_VALIDATION_POLICY must be strict or lenient, got %q", c.AI.ValidationPolicy)
	}

	switch c.AI.Provider {
	case "gemini":
		if c.AI.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
	case "openai":
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
		}
	case "anthropic":
		if c.AI.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
		}
	case "vllm":
		if c.AI.VLLM.Model == "" {
			return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
		}
	}

	return nil
}

// IsProduction reports whether the server runs with FEEDBACKHUB_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

// envList splits a comma-separated value, dropping blanks.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func envLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return lvl
}
