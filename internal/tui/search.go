package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pubmedscout/internal/searchapi"
	"github.com/csheth/pubmedscout/internal/session"
)

func (m *model) handleSearchKey(key tea.KeyMsg) tea.Cmd {
	if m.focus == focusResults {
		return m.handleResultsKey(key)
	}
	switch key.Type {
	case tea.KeyEnter:
		return m.submitSearch(m.searchInput.Value())
	case tea.KeyEsc:
		if m.state.Loading {
			m.cancelSearch()
			return nil
		}
		if m.searchInput.Value() != "" {
			m.searchInput.SetValue("")
			return nil
		}
		m.focusResults()
		return nil
	case tea.KeyDown:
		m.focusResults()
		return nil
	}
	if m.state.Loading {
		return nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(key)
	return cmd
}

// submitSearch starts a backend search for query. Blank queries and
// submissions while a search is outstanding are ignored.
func (m *model) submitSearch(query string) tea.Cmd {
	next, seq, ok := m.state.BeginSearch(query)
	if !ok {
		return nil
	}
	m.state = next
	m.errorMessage = ""
	m.infoMessage = ""
	m.focusResults()

	ctx, cancel := context.WithCancel(context.Background())
	m.abortSearch()
	m.searchCancel = cancel
	m.logger.Info().Uint64("seq", seq).Str("query", m.state.Query).Msg("search submitted")
	return tea.Batch(
		m.jobs.Start(ctx, jobKindSearch, searchJob(m.config.Search, seq, m.state.Query)),
		m.spinner.Tick,
	)
}

// cancelSearch abandons the outstanding search. The request is aborted and
// any response that still arrives is dropped as stale.
func (m *model) cancelSearch() {
	if !m.state.Loading {
		return
	}
	m.abortSearch()
	m.state = m.state.CancelSearch()
	m.infoMessage = "Search canceled."
	m.focusSearch()
}

func (m *model) handleSearchResult(msg searchResultMsg) {
	if msg.err != nil {
		next, ok := m.state.SearchFailed(msg.seq, searchErrorMessage(msg.err))
		if !ok {
			m.logger.Debug().Uint64("seq", msg.seq).Msg("dropping stale search failure")
			return
		}
		m.logger.Error().Err(msg.err).Str("query", msg.query).Msg("search failed")
		m.state = next
		m.searchCancel = nil
		if m.state.Tab == session.TabSearch {
			m.focusSearch()
		}
		return
	}
	next, ok := m.state.SearchSucceeded(msg.seq, msg.papers)
	if !ok {
		m.logger.Debug().Uint64("seq", msg.seq).Msg("dropping stale search results")
		return
	}
	m.state = next
	m.searchCancel = nil
	m.cursor = 0
	m.resultsDirty = true
	m.refreshResultsIfDirty()
	m.results.GotoTop()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("%d result(s) for %q", len(m.state.Results), msg.query)
	if m.state.Tab != session.TabSearch {
		return
	}
	if len(m.state.Results) == 0 {
		m.focusSearch()
		return
	}
	m.focus = focusResults
}

func searchErrorMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return ""
	}
	detail := err.Error()
	if errors.Is(err, searchapi.ErrStatus) {
		detail = strings.TrimPrefix(detail, searchapi.ErrStatus.Error()+": ")
	}
	return fmt.Sprintf("%s (%s)", session.SearchFailedMessage, detail)
}
