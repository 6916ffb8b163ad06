package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

func paper(pmid string) pubmed.Paper {
	return pubmed.Paper{
		PMID:            pmid,
		Title:           "Title " + pmid,
		Authors:         []string{"Smith J"},
		PublicationDate: time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBeginSearchIgnoresBlankQuery(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "   ", "\t\n"} {
		s := New()
		next, seq, ok := s.BeginSearch(q)
		assert.False(t, ok)
		assert.Zero(t, seq)
		assert.Equal(t, s, next)
	}
}

func TestBeginSearchGatesWhileLoading(t *testing.T) {
	t.Parallel()

	s, seq, ok := New().BeginSearch("crispr")
	require.True(t, ok)
	assert.Equal(t, uint64(1), seq)
	assert.True(t, s.Loading)
	assert.Equal(t, "crispr", s.Query)

	again, _, ok := s.BeginSearch("other")
	assert.False(t, ok)
	assert.Equal(t, s, again)
}

func TestSearchSucceededReplacesResults(t *testing.T) {
	t.Parallel()

	s, seq, _ := New().BeginSearch("first")
	s, ok := s.SearchSucceeded(seq, []pubmed.Paper{paper("1"), paper("2")})
	require.True(t, ok)
	require.Len(t, s.Results, 2)

	s, seq, _ = s.BeginSearch("second")
	s, ok = s.SearchSucceeded(seq, []pubmed.Paper{paper("3")})
	require.True(t, ok)
	require.Len(t, s.Results, 1)
	assert.Equal(t, "3", s.Results[0].PMID)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Err)
}

func TestSearchFailedKeepsPreviousResults(t *testing.T) {
	t.Parallel()

	s, seq, _ := New().BeginSearch("first")
	s, _ = s.SearchSucceeded(seq, []pubmed.Paper{paper("1")})

	s, seq, _ = s.BeginSearch("second")
	s, ok := s.SearchFailed(seq, "")
	require.True(t, ok)
	assert.Equal(t, SearchFailedMessage, s.Err)
	assert.False(t, s.Loading)
	require.Len(t, s.Results, 1)
	assert.Equal(t, "1", s.Results[0].PMID)
}

func TestStaleResponsesAreDropped(t *testing.T) {
	t.Parallel()

	s, stale, _ := New().BeginSearch("first")
	s = s.CancelSearch()
	s, current, ok := s.BeginSearch("second")
	require.True(t, ok)
	require.NotEqual(t, stale, current)

	dropped, applied := s.SearchSucceeded(stale, []pubmed.Paper{paper("old")})
	assert.False(t, applied)
	assert.Equal(t, s, dropped)

	dropped, applied = s.SearchFailed(stale, "boom")
	assert.False(t, applied)
	assert.Empty(t, dropped.Err)

	s, applied = s.SearchSucceeded(current, []pubmed.Paper{paper("new")})
	require.True(t, applied)
	assert.Equal(t, "new", s.Results[0].PMID)
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	t.Parallel()

	s, seq, _ := New().BeginSearch("q")
	s, _ = s.SearchSucceeded(seq, []pubmed.Paper{paper("1")})
	before := s

	opened := s.OpenCitation(s.Results[0])
	opened.Citation.Title = "changed"
	assert.Nil(t, before.Citation)
	assert.Equal(t, "Title 1", before.Results[0].Title)

	_ = s.OpenChat("1", "Title 1")
	assert.Equal(t, TabSearch, s.Tab)
	assert.Equal(t, RootRoute(), s.Route)
}

func TestSelectSearchTabReturnsToRoot(t *testing.T) {
	t.Parallel()

	s := New().OpenChat("42", "A paper")
	require.Equal(t, TabChat, s.Tab)
	require.Equal(t, "/chat/42/A%20paper", s.Route.String())

	s = s.SelectTab(TabSearch)
	assert.Equal(t, TabSearch, s.Tab)
	assert.Equal(t, RootRoute(), s.Route)
}

func TestSelectChatTabKeepsRoute(t *testing.T) {
	t.Parallel()

	s := New().SelectTab(TabChat)
	assert.Equal(t, TabChat, s.Tab)
	assert.Equal(t, RootRoute(), s.Route)
	_, _, ok := s.ChatPaper()
	assert.False(t, ok)
}

func TestCitationVisibilityFollowsSelection(t *testing.T) {
	t.Parallel()

	s := New()
	assert.False(t, s.CitationOpen())
	s = s.OpenCitation(paper("7"))
	assert.True(t, s.CitationOpen())
	assert.Equal(t, "7", s.Citation.PMID)
	s = s.CloseCitation()
	assert.False(t, s.CitationOpen())
}

func TestRouteRoundTrip(t *testing.T) {
	t.Parallel()

	routes := []Route{
		RootRoute(),
		ChatRoute("12345", "Gene X Study"),
		ChatRoute("1", "Slashes / and ? marks & more"),
		ChatRoute("2", ""),
	}
	for _, r := range routes {
		parsed, err := ParseRoute(r.String())
		require.NoError(t, err, r.String())
		assert.Equal(t, r, parsed)
	}

	bare, err := ParseRoute("/chat/12345")
	require.NoError(t, err)
	assert.Equal(t, ChatRoute("12345", ""), bare)

	_, err = ParseRoute("/papers/1")
	assert.Error(t, err)
	_, err = ParseRoute("/chat/")
	assert.Error(t, err)
}
