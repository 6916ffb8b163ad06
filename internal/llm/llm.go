package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	defaultOpenAIModel          = "gpt-4"
	defaultOpenAIEmbeddingModel = "text-embedding-ada-002"
	defaultOllamaModel          = "llama3.1:8b"
	defaultOllamaEmbeddingModel = "nomic-embed-text"
	defaultOllamaHost           = "http://localhost:11434"

	// defaultMaxContextTokens keeps the paper text inside gpt-4's 8k window
	// with room for the question and a 1000 token answer.
	defaultMaxContextTokens = 6000
	answerMaxTokens         = 1000
	answerTemperature       = 0.7
)

const defaultLLMHTTPTimeout = 3 * time.Minute

// Config describes how to build an LLM client.
type Config struct {
	Provider         string
	Model            string
	EmbeddingModel   string
	Endpoint         string
	APIKey           string
	MaxContextTokens int
	HTTPClient       *http.Client
	// Tokenizer overrides the budget tokenizer; nil picks one per provider.
	Tokenizer Tokenizer
}

// Client answers questions about a paper and embeds text for ranking.
type Client interface {
	Answer(ctx context.Context, title, question, content string) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Name() string
}

// New builds the client for cfg.Provider. Empty fields fall back to the
// OPENAI_API_KEY, OLLAMA_HOST and OLLAMA_MODEL environment variables and then
// to built-in defaults.
func New(cfg Config) (Client, error) {
	maxTokens := cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxContextTokens
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key (llm.api_key or OPENAI_API_KEY)")
		}
		model := firstNonEmpty(cfg.Model, defaultOpenAIModel)
		return newOpenAIClient(openAIOptions{
			apiKey:         apiKey,
			baseURL:        strings.TrimRight(cfg.Endpoint, "/"),
			model:          model,
			embeddingModel: firstNonEmpty(cfg.EmbeddingModel, defaultOpenAIEmbeddingModel),
			maxTokens:      maxTokens,
			tokenizer:      cfg.Tokenizer,
			httpClient:     pickHTTPClient(cfg.HTTPClient),
		}), nil
	case ProviderOllama:
		host := cfg.Endpoint
		if host == "" {
			host = firstNonEmpty(os.Getenv("OLLAMA_HOST"), defaultOllamaHost)
		}
		model := cfg.Model
		if model == "" {
			model = firstNonEmpty(os.Getenv("OLLAMA_MODEL"), defaultOllamaModel)
		}
		tok := cfg.Tokenizer
		if tok == nil {
			tok = approxTokenizer{}
		}
		return &ollamaClient{
			host:           strings.TrimRight(host, "/"),
			model:          model,
			embeddingModel: firstNonEmpty(cfg.EmbeddingModel, defaultOllamaEmbeddingModel),
			maxTokens:      maxTokens,
			tokenizer:      tok,
			client:         pickHTTPClient(cfg.HTTPClient),
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Answers over a full paper can take minutes; callers cancel via ctx.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
