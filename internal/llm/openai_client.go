package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type openAIOptions struct {
	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
	maxTokens      int
	tokenizer      Tokenizer
	httpClient     *http.Client
}

type openAIClient struct {
	api            openai.Client
	model          string
	embeddingModel string
	maxTokens      int

	tokOnce   sync.Once
	tokenizer Tokenizer
}

func newOpenAIClient(o openAIOptions) *openAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(o.apiKey),
		option.WithHTTPClient(o.httpClient),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	return &openAIClient{
		api:            openai.NewClient(opts...),
		model:          o.model,
		embeddingModel: o.embeddingModel,
		maxTokens:      o.maxTokens,
		tokenizer:      o.tokenizer,
	}
}

func (c *openAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

// budgetTokenizer resolves the tiktoken vocabulary on first use since loading
// it may hit the network.
func (c *openAIClient) budgetTokenizer() Tokenizer {
	c.tokOnce.Do(func() {
		if c.tokenizer == nil {
			c.tokenizer = tokenizerForModel(c.model)
		}
	})
	return c.tokenizer
}

func (c *openAIClient) Answer(ctx context.Context, title, question, content string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	context := fitContent(content, question, c.maxTokens, c.budgetTokenizer())
	if context == "" {
		return "", fmt.Errorf("paper text empty; cannot answer question")
	}
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(title, context)),
			openai.UserMessage(question),
		},
		Temperature:         openai.Float(answerTemperature),
		MaxCompletionTokens: openai.Int(answerMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API error: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *openAIClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI API error: %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float64, len(data))
	for i, entry := range data {
		out[i] = entry.Embedding
	}
	return out, nil
}
