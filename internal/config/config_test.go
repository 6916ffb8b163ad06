package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, ":8000", cfg.Serve.Addr)
	assert.Equal(t, 50, cfg.Serve.MaxResults)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 6000, cfg.LLM.MaxContextTokens)
}

func TestInitReadsFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: http://backend:9000/
serve:
  max_results: 20
llm:
  provider: ollama
  model: llama3.1:8b
`), 0o644))
	t.Setenv("PUBMEDSCOUT_SERVE_ADDR", ":9999")
	t.Setenv("PUBMEDSCOUT_NCBI_API_KEY", "ncbi-key")

	v := viper.New()
	used, err := Init(v, path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.APIURL)
	assert.Equal(t, 20, cfg.Serve.MaxResults)
	assert.Equal(t, ":9999", cfg.Serve.Addr)
	assert.Equal(t, "ncbi-key", cfg.NCBI.APIKey)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.1:8b", cfg.LLM.Model)
}

func TestInitWithoutFileIsNotAnError(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	used, err := Init(v, "")
	require.NoError(t, err)
	assert.Empty(t, used)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Config{
		APIURL: "localhost",
		Serve:  Serve{MaxResults: 500},
		LLM:    LLM{Provider: "bard", MaxContextTokens: -1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"api_url", "serve.max_results", "llm.provider", "max_context_tokens"} {
		assert.Contains(t, err.Error(), want)
	}
}
