// Package chatapi calls the backend chat endpoint that answers questions
// about a single paper.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Minute

// ErrPaperUnavailable is returned when the backend cannot load the paper.
var ErrPaperUnavailable = errors.New("paper not found or couldn't be fetched")

// Request is the POST /api/chat body.
type Request struct {
	PMID    string `json:"pmid"`
	Message string `json:"message"`
}

// Response is the POST /api/chat reply.
type Response struct {
	Response string `json:"response"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// Client posts questions to the chat endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client. A nil httpClient gets a two minute timeout since
// answers are generated synchronously.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

// Ask sends message about pmid and returns the assistant's answer.
func (c *Client) Ask(ctx context.Context, pmid, message string) (string, error) {
	pmid = strings.TrimSpace(pmid)
	message = strings.TrimSpace(message)
	if pmid == "" {
		return "", errors.New("no paper selected")
	}
	if message == "" {
		return "", errors.New("message cannot be empty")
	}

	payload, err := json.Marshal(Request{PMID: pmid, Message: message})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &body) != nil || body.Detail == "" {
			body.Detail = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrPaperUnavailable, body.Detail)
		}
		return "", fmt.Errorf("chat api error: %s: %s", resp.Status, body.Detail)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}
