package tui

import (
	"github.com/csheth/pubmedscout/internal/pubmed"
)

type focusArea int

const (
	focusSearchInput focusArea = iota
	focusResults
	focusChatInput
	focusChatTranscript
)

const (
	appTitle          = "PubMed Scout"
	searchHeading     = "Search PubMed"
	searchPlaceholder = "Search for research papers..."
	searchHelperText  = "Use keywords or phrases to find relevant research papers."
	chatHeading       = "Chat with Paper"
	chatPlaceholder   = "Ask a question about this paper…"
	chatNoPaperHint   = "Pick a paper from the search results and press Enter to chat about it."

	copySuccessMessage = "Citation copied to clipboard!"
	copyFailureMessage = "Failed to copy citation"
	cslCopiedMessage   = "CSL-YAML copied to clipboard!"
)

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	sidebarWidth              = 24
	abstractPreviewLines      = 3
)

// chatExchange is one question and its answer. Seq identifies the request
// that will answer it.
type chatExchange struct {
	Seq      uint64
	Question string
	Answer   string
	Error    string
	Pending  bool
}

type searchResultMsg struct {
	seq    uint64
	query  string
	papers []pubmed.Paper
	err    error
}

type chatAnswerMsg struct {
	pmid   string
	seq    uint64
	answer string
	err    error
}

type clipboardKind int

const (
	clipboardCitation clipboardKind = iota
	clipboardCSL
)

type clipboardResultMsg struct {
	kind clipboardKind
	err  error
}

type openResultMsg struct {
	url string
	err error
}
