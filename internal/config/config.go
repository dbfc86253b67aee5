package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/parser"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8090"`

	// Auth
	APIKey string `env:"PAPERCHAT_API_KEY"`

	// Groq completion endpoint
	GroqAPIKey  string   `env:"GROQ_API_KEY"`
	GroqBaseURL string   `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai"`
	GroqModels  []string `env:"GROQ_MODELS" envDefault:"llama-3.3-70b-versatile,llama-3.1-8b-instant,gemma2-9b-it"`

	// Completion parameters
	Temperature      float64 `env:"TEMPERATURE" envDefault:"0.5"`
	MaxTokens        int     `env:"MAX_TOKENS" envDefault:"1000"`
	MaxContextTokens int     `env:"MAX_CONTEXT_TOKENS" envDefault:"0"`

	// Completion resilience
	LLMTimeout           time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	LLMMaxRetries        int           `env:"LLM_MAX_RETRIES" envDefault:"3"`
	LLMRequestsPerSecond float64       `env:"LLM_REQUESTS_PER_SECOND" envDefault:"2"`
	LLMBurst             int           `env:"LLM_BURST" envDefault:"4"`
	LLMStatsWindow       time.Duration `env:"LLM_STATS_WINDOW" envDefault:"1h"`

	// Upload worker pool
	WorkerCount  int `env:"WORKER_COUNT" envDefault:"2"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" envDefault:"100"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"` // 50MB

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// Sessions
	SessionStore string        `env:"SESSION_STORE" envDefault:"memory"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"paperchat.db"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	MaxSessions  int           `env:"MAX_SESSIONS" envDefault:"1000"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.MaxContextTokens < 0 {
		cfg.MaxContextTokens = 0
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}
	if cfg.LLMMaxRetries < 0 {
		cfg.LLMMaxRetries = 0
	}
	if cfg.LLMRequestsPerSecond <= 0 {
		cfg.LLMRequestsPerSecond = 2
	}
	if cfg.LLMBurst <= 0 {
		cfg.LLMBurst = 4
	}
	if cfg.LLMStatsWindow <= 0 {
		cfg.LLMStatsWindow = time.Hour
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	cfg.GroqModels = slices.DeleteFunc(cfg.GroqModels, func(m string) bool { return m == "" })

	return cfg, nil
}

// Validate checks settings the HTTP server cannot run without.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PAPERCHAT_API_KEY is required")
	}
	switch c.SessionStore {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("SESSION_STORE must be memory or sqlite, got %q", c.SessionStore)
	}
	return c.ValidateCompletion()
}

// ValidateCompletion checks the settings needed to call the completion endpoint.
func (c Config) ValidateCompletion() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if len(c.GroqModels) == 0 {
		return fmt.Errorf("GROQ_MODELS must list at least one model")
	}
	return nil
}

// Completion returns the completion client settings.
func (c Config) Completion() completion.ClientConfig {
	return completion.ClientConfig{
		APIKey:            c.GroqAPIKey,
		BaseURL:           c.GroqBaseURL,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		MaxContextTokens:  c.MaxContextTokens,
		Timeout:           c.LLMTimeout,
		MaxRetries:        c.LLMMaxRetries,
		RequestsPerSecond: c.LLMRequestsPerSecond,
		Burst:             c.LLMBurst,
		StatsWindow:       c.LLMStatsWindow,
	}
}

// Parser returns the document extraction options.
func (c Config) Parser() parser.Options {
	return parser.Options{PDFFallbackPdftotext: c.PDFFallbackPdftotext}
}
