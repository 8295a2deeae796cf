package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Provider string

const (
	ProviderMock   Provider = "mock"
	ProviderOpenAI Provider = "openai"
	ProviderVertex Provider = "vertex"
)

type StorageBackend string

const (
	StorageMemory    StorageBackend = "memory"
	StorageFile      StorageBackend = "file"
	StorageSQLite    StorageBackend = "sqlite"
	StorageFirestore StorageBackend = "firestore"
)

// DefaultEndMarker is the text the persona emits when the session is over.
const DefaultEndMarker = "KLAR FÖR SKRIVNING"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Storage    StorageConfig    `yaml:"storage"`
	Session    SessionConfig    `yaml:"session"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LLMConfig struct {
	Provider      Provider      `yaml:"provider"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	GCPProjectID  string        `yaml:"gcp_project"`
	GCPLocation   string        `yaml:"gcp_location"`
	Timeout       time.Duration `yaml:"timeout"`
	ContextWindow int           `yaml:"context_window"` // used for the usage report only
}

type StorageConfig struct {
	Backend      StorageBackend `yaml:"backend"`
	Dir          string         `yaml:"dir"`        // file backend
	SQLiteDSN    string         `yaml:"sqlite_dsn"` // sqlite backend
	GCPProjectID string         `yaml:"gcp_project"`
}

type SessionConfig struct {
	EndMarker     string        `yaml:"end_marker"`
	Budget        time.Duration `yaml:"budget"` // soft, only told to the persona
	TranscriptDir string        `yaml:"transcript_dir"`
}

type EnrichmentConfig struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		LLM: LLMConfig{
			Provider:      ProviderMock,
			Model:         "", // provider default
			BaseURL:       "https://api.openai.com",
			GCPLocation:   "us-central1",
			Timeout:       60 * time.Second,
			ContextWindow: 128000,
		},
		Storage: StorageConfig{
			Backend:   StorageMemory,
			Dir:       ".psykologen",
			SQLiteDSN: "file:psykologen.db?cache=shared&mode=rwc",
		},
		Session: SessionConfig{
			EndMarker:     DefaultEndMarker,
			Budget:        10 * time.Minute,
			TranscriptDir: ".",
		},
		Enrichment: EnrichmentConfig{
			Workers:         4,
			QueueSize:       64,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the optional YAML file at path, applies env overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !(errors.Is(err, os.ErrNotExist) && path == DefaultPath) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath is read when no --config flag is given; it may be missing.
const DefaultPath = "psykologen.yaml"

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PSYKOLOGEN_PORT", getEnv("PORT", cfg.Server.Port))

	cfg.LLM.Provider = Provider(getEnv("PSYKOLOGEN_LLM_PROVIDER", string(cfg.LLM.Provider)))
	if getBoolEnv("PSYKOLOGEN_USE_MOCK_LLM", false) {
		cfg.LLM.Provider = ProviderMock
	}
	cfg.LLM.Model = getEnv("PSYKOLOGEN_MODEL_NAME", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("PSYKOLOGEN_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("PSYKOLOGEN_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.GCPProjectID = getEnv("PSYKOLOGEN_GCP_PROJECT", cfg.LLM.GCPProjectID)
	cfg.LLM.GCPLocation = getEnv("PSYKOLOGEN_GCP_LOCATION", cfg.LLM.GCPLocation)
	cfg.LLM.Timeout = getDurationEnv("PSYKOLOGEN_LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.ContextWindow = getIntEnv("PSYKOLOGEN_CONTEXT_WINDOW", cfg.LLM.ContextWindow)

	cfg.Storage.Backend = StorageBackend(getEnv("PSYKOLOGEN_STORAGE_BACKEND", string(cfg.Storage.Backend)))
	cfg.Storage.Dir = getEnv("PSYKOLOGEN_STORAGE_DIR", cfg.Storage.Dir)
	cfg.Storage.SQLiteDSN = getEnv("PSYKOLOGEN_SQLITE_DSN", cfg.Storage.SQLiteDSN)
	cfg.Storage.GCPProjectID = getEnv("PSYKOLOGEN_GCP_PROJECT", cfg.Storage.GCPProjectID)

	cfg.Session.EndMarker = getEnv("PSYKOLOGEN_END_MARKER", cfg.Session.EndMarker)
	cfg.Session.Budget = getDurationEnv("PSYKOLOGEN_SESSION_BUDGET", cfg.Session.Budget)
	cfg.Session.TranscriptDir = getEnv("PSYKOLOGEN_TRANSCRIPT_DIR", cfg.Session.TranscriptDir)

	cfg.Enrichment.Workers = getIntEnv("PSYKOLOGEN_ENRICHMENT_WORKERS", cfg.Enrichment.Workers)
	cfg.Enrichment.QueueSize = getIntEnv("PSYKOLOGEN_ENRICHMENT_QUEUE", cfg.Enrichment.QueueSize)

	cfg.Log.Level = getEnv("PSYKOLOGEN_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("PSYKOLOGEN_LOG_FORMAT", cfg.Log.Format)
}

// Validate checks the fields each provider and backend needs.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return errors.New("llm.api_key (or OPENAI_API_KEY) must be set for the openai provider")
		}
	case ProviderVertex:
		if c.LLM.GCPProjectID == "" || c.LLM.GCPLocation == "" {
			return errors.New("PSYKOLOGEN_GCP_PROJECT and PSYKOLOGEN_GCP_LOCATION must be set for the vertex provider")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required for the file backend")
		}
	case StorageSQLite:
		if c.Storage.SQLiteDSN == "" {
			return errors.New("storage.sqlite_dsn is required for the sqlite backend")
		}
	case StorageFirestore:
		if c.Storage.GCPProjectID == "" {
			return errors.New("PSYKOLOGEN_GCP_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Session.EndMarker == "" {
		return errors.New("session.end_marker must not be empty")
	}
	if c.Enrichment.Workers <= 0 {
		return errors.New("enrichment.workers must be positive")
	}
	if c.Enrichment.QueueSize <= 0 {
		return errors.New("enrichment.queue_size must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
