package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskPostsQuestion(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, Request{PMID: "123", Message: "What was measured?"}, req)
		_ = json.NewEncoder(w).Encode(Response{Response: " Blood pressure. "})
	}))
	defer ts.Close()

	answer, err := New(ts.URL, ts.Client()).Ask(context.Background(), "123", "What was measured?")
	require.NoError(t, err)
	assert.Equal(t, "Blood pressure.", answer)
}

func TestAskMapsNotFound(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Paper not found or couldn't be fetched"}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL, ts.Client()).Ask(context.Background(), "1", "hi")
	require.ErrorIs(t, err, ErrPaperUnavailable)
}

func TestAskReportsServerDetail(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"OpenAI API error: quota"}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL, ts.Client()).Ask(context.Background(), "1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API error: quota")
}

func TestAskValidatesInput(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:0", nil)
	_, err := c.Ask(context.Background(), "", "hi")
	assert.Error(t, err)
	_, err = c.Ask(context.Background(), "1", "  ")
	assert.Error(t, err)
}
