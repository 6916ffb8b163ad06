package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ollamaClient struct {
	host           string
	model          string
	embeddingModel string
	maxTokens      int
	tokenizer      Tokenizer
	client         *http.Client
}

func (c *ollamaClient) Name() string {
	return fmt.Sprintf("Ollama (%s)", c.model)
}

func (c *ollamaClient) Answer(ctx context.Context, title, question, content string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	context := fitContent(content, question, c.maxTokens, c.tokenizer)
	if context == "" {
		return "", fmt.Errorf("paper text empty; cannot answer question")
	}
	payload := map[string]any{
		"model":  c.model,
		"system": SystemPrompt(title, context),
		"prompt": question,
		"stream": false,
		"options": map[string]any{
			"temperature": answerTemperature,
			"num_predict": answerMaxTokens,
		},
	}
	var parsed struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := c.post(ctx, "/api/generate", payload, &parsed); err != nil {
		return "", err
	}
	if parsed.Response == "" {
		return "", fmt.Errorf("ollama returned an empty response")
	}
	return strings.TrimSpace(parsed.Response), nil
}

func (c *ollamaClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	payload := map[string]any{
		"model": c.embeddingModel,
		"input": texts,
	}
	var parsed struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := c.post(ctx, "/api/embed", payload, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}

func (c *ollamaClient) post(ctx context.Context, path string, payload any, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ollama API error: %s (%s)", resp.Status, string(body))
	}
	return json.Unmarshal(body, out)
}
