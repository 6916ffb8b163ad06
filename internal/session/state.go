// Package session holds the client's UI state. State is a value: every
// transition returns a new State and never mutates the receiver, so the
// Bubble Tea model can keep the previous value for comparison.
package session

import (
	"strings"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

// SearchFailedMessage is shown when a search request fails.
const SearchFailedMessage = "Search failed. Please try again."

// Tab is the navigation shell selection.
type Tab int

const (
	TabSearch Tab = iota
	TabChat
)

func (t Tab) String() string {
	if t == TabChat {
		return "chat"
	}
	return "search"
}

// State is the process-wide session state.
type State struct {
	Results  []pubmed.Paper
	Tab      Tab
	Citation *pubmed.Paper
	Route    Route
	Loading  bool
	Err      string
	// Seq is the sequence number of the newest issued search. Responses
	// carrying any other number are stale.
	Seq   uint64
	Query string
}

// New returns the empty state shown on start.
func New() State {
	return State{Tab: TabSearch, Route: RootRoute()}
}

// BeginSearch issues a search for query. It reports false, leaving the state
// unchanged, when the query is blank or a search is already outstanding.
func (s State) BeginSearch(query string) (State, uint64, bool) {
	query = strings.TrimSpace(query)
	if query == "" || s.Loading {
		return s, 0, false
	}
	next := s.clone()
	next.Seq++
	next.Loading = true
	next.Err = ""
	next.Query = query
	return next, next.Seq, true
}

// SearchSucceeded replaces the result set wholesale when seq is current.
func (s State) SearchSucceeded(seq uint64, results []pubmed.Paper) (State, bool) {
	if seq != s.Seq {
		return s, false
	}
	next := s.clone()
	next.Loading = false
	next.Err = ""
	next.Results = append([]pubmed.Paper(nil), results...)
	return next, true
}

// SearchFailed records a failure for the current search and keeps the
// previous results.
func (s State) SearchFailed(seq uint64, message string) (State, bool) {
	if seq != s.Seq {
		return s, false
	}
	if strings.TrimSpace(message) == "" {
		message = SearchFailedMessage
	}
	next := s.clone()
	next.Loading = false
	next.Err = message
	return next, true
}

// CancelSearch abandons the outstanding search. Its response, if it still
// arrives, no longer matches Seq and is dropped.
func (s State) CancelSearch() State {
	if !s.Loading {
		return s
	}
	next := s.clone()
	next.Seq++
	next.Loading = false
	return next
}

// SelectTab switches the navigation shell. Search always returns to the root
// route; chat only changes the tab.
func (s State) SelectTab(tab Tab) State {
	next := s.clone()
	next.Tab = tab
	if tab == TabSearch {
		next.Route = RootRoute()
	}
	return next
}

// OpenChat navigates to the chat view scoped to one paper.
func (s State) OpenChat(pmid, title string) State {
	next := s.clone()
	next.Tab = TabChat
	next.Route = ChatRoute(pmid, title)
	next.Citation = nil
	return next
}

// OpenCitation selects p for the citation dialog.
func (s State) OpenCitation(p pubmed.Paper) State {
	next := s.clone()
	selected := p
	selected.Authors = append([]string(nil), p.Authors...)
	next.Citation = &selected
	return next
}

// CloseCitation hides the citation dialog.
func (s State) CloseCitation() State {
	if s.Citation == nil {
		return s
	}
	next := s.clone()
	next.Citation = nil
	return next
}

// CitationOpen reports whether the citation dialog is visible.
func (s State) CitationOpen() bool {
	return s.Citation != nil
}

// ChatPaper returns the paper the chat route is scoped to.
func (s State) ChatPaper() (pmid, title string, ok bool) {
	if s.Route.Kind != RouteChat || s.Route.PMID == "" {
		return "", "", false
	}
	return s.Route.PMID, s.Route.Title, true
}

// clone copies the slice header so callers cannot alias the new state's
// result set through the old one.
func (s State) clone() State {
	next := s
	if s.Results != nil {
		next.Results = append([]pubmed.Paper(nil), s.Results...)
	}
	return next
}
