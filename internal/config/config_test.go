package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, DefaultEndMarker, cfg.Session.EndMarker)
	assert.Equal(t, 10*time.Minute, cfg.Session.Budget)
	assert.Equal(t, 128000, cfg.LLM.ContextWindow)
}

func TestLoadMissingDefaultPathIsIgnored(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	_, err = Load(DefaultPath)
	require.NoError(t, err)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psykologen.yaml")
	yml := `
server:
  port: "9090"
storage:
  backend: file
  dir: /tmp/docs
session:
  end_marker: "KLAR FOR SKRIVNING"
  budget: 15m
enrichment:
  workers: 2
  queue_size: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("PSYKOLOGEN_PORT", "7070")
	t.Setenv("PSYKOLOGEN_ENRICHMENT_WORKERS", "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/docs", cfg.Storage.Dir)
	assert.Equal(t, "KLAR FOR SKRIVNING", cfg.Session.EndMarker)
	assert.Equal(t, 15*time.Minute, cfg.Session.Budget)
	assert.Equal(t, 6, cfg.Enrichment.Workers)
	assert.Equal(t, 8, cfg.Enrichment.QueueSize)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"openai without key":   func(c *Config) { c.LLM.Provider = ProviderOpenAI; c.LLM.APIKey = "" },
		"vertex without proj":  func(c *Config) { c.LLM.Provider = ProviderVertex; c.LLM.GCPProjectID = "" },
		"unknown provider":     func(c *Config) { c.LLM.Provider = "llama" },
		"firestore no project": func(c *Config) { c.Storage.Backend = StorageFirestore },
		"unknown backend":      func(c *Config) { c.Storage.Backend = "s3" },
		"empty marker":         func(c *Config) { c.Session.EndMarker = "" },
		"zero workers":         func(c *Config) { c.Enrichment.Workers = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMockEnvOverridesProvider(t *testing.T) {
	t.Setenv("PSYKOLOGEN_LLM_PROVIDER", "openai")
	t.Setenv("PSYKOLOGEN_USE_MOCK_LLM", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, cfg.LLM.Provider)
}
