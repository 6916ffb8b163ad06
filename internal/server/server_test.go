package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pubmedscout/internal/pubmed"
	"github.com/csheth/pubmedscout/internal/store"
)

type fakePapers struct {
	ids          []string
	papers       []pubmed.Paper
	searchErr    error
	content      map[string]pubmed.Content
	contentCalls int32
	lastMax      atomic.Int64
}

func (f *fakePapers) Search(_ context.Context, _ string, max int) ([]string, error) {
	f.lastMax.Store(int64(max))
	return f.ids, f.searchErr
}

func (f *fakePapers) FetchDetails(_ context.Context, _ []string) ([]pubmed.Paper, error) {
	return f.papers, nil
}

func (f *fakePapers) FetchContent(ctx context.Context, pmid string) (*pubmed.Content, error) {
	atomic.AddInt32(&f.contentCalls, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := f.content[pmid]
	if !ok {
		return nil, pubmed.ErrNotFound
	}
	return &c, nil
}

type fakeLLM struct {
	mu        sync.Mutex
	questions []string
	answerErr error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) asked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.questions...)
}

func (f *fakeLLM) Answer(_ context.Context, title, question, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return "About " + title + ": " + content, nil
}

// Embed scores text by how often it mentions "gene".
func (f *fakeLLM) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(strings.Count(strings.ToLower(text), "gene"))}
	}
	return out, nil
}

func newTestServer(t *testing.T, papers *fakePapers, model *fakeLLM) *httptest.Server {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := New(Options{Papers: papers, LLM: model, Store: st, Logger: zerolog.Nop()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func date(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func TestSearchRanksResults(t *testing.T) {
	papers := &fakePapers{
		ids: []string{"1", "2"},
		papers: []pubmed.Paper{
			{PMID: "1", Title: "Unrelated", Abstract: "nothing", Authors: []string{"A B"}, PublicationDate: date(2020)},
			{PMID: "2", Title: "Gene study", Abstract: "gene gene", PublicationDate: date(2021)},
		},
	}
	ts := newTestServer(t, papers, &fakeLLM{})

	resp, err := http.Get(ts.URL + "/api/search?query=gene&max_results=500")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, int64(maxMaxResults), papers.lastMax.Load())

	got, dropped, err := pubmed.DecodePapers(resp.Body)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].PMID)
	assert.Equal(t, 3.0, got[0].RelevanceScore)
	assert.Equal(t, "1", got[1].PMID)
}

func TestSearchDefaultsMaxResults(t *testing.T) {
	papers := &fakePapers{}
	ts := newTestServer(t, papers, &fakeLLM{})

	resp, err := http.Get(ts.URL + "/api/search?query=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(defaultMaxResults), papers.lastMax.Load())

	var body []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body)
}

func TestSearchRequiresQuery(t *testing.T) {
	ts := newTestServer(t, &fakePapers{}, &fakeLLM{})

	resp, err := http.Get(ts.URL + "/api/search?query=%20")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchUpstreamFailure(t *testing.T) {
	ts := newTestServer(t, &fakePapers{searchErr: errors.New("503 from ncbi")}, &fakeLLM{})

	resp, err := http.Get(ts.URL + "/api/search?query=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Detail, "PubMed API error")
}

func postChat(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChatAnswersFromCachedContent(t *testing.T) {
	papers := &fakePapers{content: map[string]pubmed.Content{
		"42": {PMID: "42", Title: "Gene X", Abstract: "abs", FullText: "full text", HasFullText: true},
	}}
	model := &fakeLLM{}
	ts := newTestServer(t, papers, model)

	for i := 0; i < 2; i++ {
		resp := postChat(t, ts.URL, `{"pmid":"42","message":"What is it?"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out chatResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "About Gene X: full text", out.Response)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&papers.contentCalls), "second question should hit the store")
	assert.Equal(t, []string{"What is it?", "What is it?"}, model.asked())
}

func TestSharedFetchSurvivesCallerCancel(t *testing.T) {
	papers := &fakePapers{content: map[string]pubmed.Content{
		"42": {PMID: "42", Title: "Gene X", Abstract: "abs"},
	}}
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	srv := New(Options{Papers: papers, LLM: &fakeLLM{}, Store: st, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	content, err := srv.paperContent(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Gene X", content.Title)

	entry, err := st.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "abs", entry.Content.Abstract)
}

func TestChatUnknownPaper(t *testing.T) {
	ts := newTestServer(t, &fakePapers{}, &fakeLLM{})

	resp := postChat(t, ts.URL, `{"pmid":"404","message":"hi"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, paperUnavailable, body.Detail)
}

func TestChatValidatesBody(t *testing.T) {
	ts := newTestServer(t, &fakePapers{}, &fakeLLM{})

	assert.Equal(t, http.StatusUnprocessableEntity, postChat(t, ts.URL, `not json`).StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, postChat(t, ts.URL, `{"pmid":"1"}`).StatusCode)
}

func TestChatLLMFailure(t *testing.T) {
	papers := &fakePapers{content: map[string]pubmed.Content{"1": {PMID: "1", Title: "T", FullText: "x"}}}
	ts := newTestServer(t, papers, &fakeLLM{answerErr: errors.New("OpenAI API error: quota")})

	resp := postChat(t, ts.URL, `{"pmid":"1","message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OpenAI API error: quota", body.Detail)
}

func TestHealthAndPreflight(t *testing.T) {
	ts := newTestServer(t, &fakePapers{}, &fakeLLM{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := New(Options{Papers: &fakePapers{}, LLM: &fakeLLM{}, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
