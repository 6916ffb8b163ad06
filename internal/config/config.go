// Package config loads pubmedscout settings from a YAML file, PUBMEDSCOUT_*
// environment variables and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix scopes environment overrides, e.g. PUBMEDSCOUT_SERVE_ADDR.
	EnvPrefix = "PUBMEDSCOUT"
	fileName  = "pubmedscout"

	// MaxSearchResults caps max_results on the search endpoint.
	MaxSearchResults = 200
)

// Config is the full application configuration.
type Config struct {
	APIURL      string `mapstructure:"api_url"`
	LogLevel    string `mapstructure:"log_level"`
	NoAltScreen bool   `mapstructure:"no_alt_screen"`
	Serve       Serve  `mapstructure:"serve"`
	NCBI        NCBI   `mapstructure:"ncbi"`
	LLM         LLM    `mapstructure:"llm"`
}

// Serve configures the backend HTTP server.
type Serve struct {
	Addr       string `mapstructure:"addr"`
	MaxResults int    `mapstructure:"max_results"`
	DBPath     string `mapstructure:"db_path"`
}

// NCBI configures the E-utilities client.
type NCBI struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Email   string `mapstructure:"email"`
}

// LLM selects the chat and embedding provider.
type LLM struct {
	Provider         string `mapstructure:"provider"`
	Model            string `mapstructure:"model"`
	EmbeddingModel   string `mapstructure:"embedding_model"`
	Endpoint         string `mapstructure:"endpoint"`
	APIKey           string `mapstructure:"api_key"`
	MaxContextTokens int    `mapstructure:"max_context_tokens"`
}

// SetDefaults registers every key so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("no_alt_screen", false)
	v.SetDefault("serve.addr", ":8000")
	v.SetDefault("serve.max_results", 50)
	v.SetDefault("serve.db_path", "")
	v.SetDefault("ncbi.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("ncbi.api_key", "")
	v.SetDefault("ncbi.email", "")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.embedding_model", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_context_tokens", 6000)
}

// Init wires config file discovery and environment overrides into v. An
// explicit cfgFile wins over ./pubmedscout.yaml and
// ~/.config/pubmedscout/pubmedscout.yaml. A missing file is not an error.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		if cfgFile == "" && os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url %q must be an absolute URL", c.APIURL))
	}
	if c.Serve.MaxResults < 1 || c.Serve.MaxResults > MaxSearchResults {
		errs = append(errs, fmt.Errorf("serve.max_results must be between 1 and %d", MaxSearchResults))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q must be openai or ollama", c.LLM.Provider))
	}
	if c.LLM.MaxContextTokens < 0 {
		errs = append(errs, errors.New("llm.max_context_tokens cannot be negative"))
	}
	return errors.Join(errs...)
}
