package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ProviderAuto, cfg.LLM.Provider)
	assert.True(t, cfg.LLM.FallbackEnabled)
	assert.Equal(t, "qwen-plus", cfg.LLM.Cloud.Model)
	assert.Equal(t, "qwen-turbo", cfg.LLM.Cloud.ModelFast)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Ollama.BaseURL)
	assert.Equal(t, 4, cfg.Routing.CandidateCount)
	assert.Equal(t, 800, cfg.Routing.RAGContextTokens)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
server:
  port: 9090
llm:
  provider: local
  fallback_enabled: false
  ollama:
    model: llama3:8b
routing:
  candidate_count: 6
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	t.Setenv("OLLAMA_MODEL", "qwen3:4b")
	t.Setenv("QWEN_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ProviderLocal, cfg.LLM.Provider)
	assert.False(t, cfg.LLM.FallbackEnabled)
	assert.Equal(t, "qwen3:4b", cfg.LLM.Ollama.Model, "環境変数がYAMLより優先される")
	assert.Equal(t, 6, cfg.Routing.CandidateCount)
	assert.True(t, cfg.HasCloudAPIKey())
	// YAMLで指定していない値は既定値のまま
	assert.Equal(t, 4096, cfg.LLM.Ollama.NumCtx)
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gpt")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_CandidateCount(t *testing.T) {
	cfg := Default()
	cfg.Routing.CandidateCount = 0
	assert.Error(t, cfg.Validate())

	cfg.Routing.CandidateCount = 11
	assert.Error(t, cfg.Validate())

	cfg.Routing.CandidateCount = 10
	assert.NoError(t, cfg.Validate())
}
