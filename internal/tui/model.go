package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/csheth/pubmedscout/internal/chatapi"
	"github.com/csheth/pubmedscout/internal/citation"
	"github.com/csheth/pubmedscout/internal/searchapi"
	"github.com/csheth/pubmedscout/internal/session"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Search    Searcher
	Chat      Asker
	Clipboard ClipboardWriter
	Opener    URLOpener
	Logger    *zerolog.Logger
	// InitialRoute opens the program on a route such as "/chat/123/Title".
	InitialRoute string
}

type model struct {
	config Config
	logger zerolog.Logger
	jobs   *jobBus

	state  session.State
	layout pageLayout
	focus  focusArea

	searchInput textinput.Model
	chatInput   textinput.Model
	spinner     spinner.Model
	results     viewport.Model
	transcript  viewport.Model

	cursor       int
	resultsView  displayView
	resultsDirty bool
	chatDirty    bool
	searchCancel context.CancelFunc

	citationStyle citation.Style

	chatPMID      string
	exchanges     []chatExchange
	chatSeq       uint64
	starterCursor int

	jobSnapshots map[jobKind]jobSnapshot
	infoMessage  string
	errorMessage string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Search == nil {
		config.Search = searchapi.New(searchapi.DefaultBaseURL)
	}
	if config.Chat == nil {
		config.Chat = chatapi.New(searchapi.DefaultBaseURL, nil)
	}
	if config.Clipboard == nil {
		config.Clipboard = systemClipboard{}
	}
	if config.Opener == nil {
		config.Opener = systemOpener{}
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "tui").Logger()
	}

	searchInput := textinput.New()
	searchInput.Placeholder = searchPlaceholder
	searchInput.Prompt = "🔍 "
	searchInput.CharLimit = 300
	searchInput.Width = 60
	searchInput.Focus()

	chatInput := textinput.New()
	chatInput.Placeholder = chatPlaceholder
	chatInput.CharLimit = 500
	chatInput.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	results := viewport.New(80, 16)
	results.MouseWheelEnabled = true
	transcript := viewport.New(80, 16)
	transcript.MouseWheelEnabled = true

	m := &model{
		config:        config,
		logger:        logger,
		jobs:          newJobBus(logger),
		state:         session.New(),
		layout:        newPageLayout(),
		focus:         focusSearchInput,
		searchInput:   searchInput,
		chatInput:     chatInput,
		spinner:       spin,
		results:       results,
		transcript:    transcript,
		citationStyle: citation.MLA,
		jobSnapshots:  map[jobKind]jobSnapshot{},
		resultsDirty:  true,
		chatDirty:     true,
	}
	if config.InitialRoute != "" {
		route, err := session.ParseRoute(config.InitialRoute)
		if err != nil {
			logger.Warn().Err(err).Str("route", config.InitialRoute).Msg("ignoring initial route")
		} else if route.Kind == session.RouteChat {
			m.openChat(route.PMID, route.Title)
		}
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			if m.chatPending() {
				m.chatDirty = true
			}
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.abortSearch()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		switch {
		case m.state.CitationOpen():
		case m.state.Tab == session.TabSearch:
			m.results, cmd = m.results.Update(msg)
		default:
			m.transcript, cmd = m.transcript.Update(msg)
		}
		return m, cmd
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.results.Width = m.layout.mainWidth
		m.results.Height = m.layout.resultsHeight
		m.transcript.Width = m.layout.mainWidth
		m.transcript.Height = m.layout.chatHeight
		inputWidth := m.layout.mainWidth - 6
		m.searchInput.Width = inputWidth
		m.chatInput.Width = inputWidth
		m.resultsDirty = true
		m.chatDirty = true
		return m, nil
	case jobSignalMsg:
		m.jobSnapshots[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		m.jobSnapshots[msg.Snapshot.Kind] = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case searchResultMsg:
		m.handleSearchResult(msg)
		return m, nil
	case chatAnswerMsg:
		m.handleChatAnswer(msg)
		return m, nil
	case clipboardResultMsg:
		m.handleClipboardResult(msg)
		return m, nil
	case openResultMsg:
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Str("url", msg.url).Msg("open source page failed")
			m.errorMessage = fmt.Sprintf("Could not open %s", msg.url)
			return m, nil
		}
		m.infoMessage = fmt.Sprintf("Opened %s", msg.url)
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state.CitationOpen() {
		return m, m.handleCitationKey(key)
	}
	if key.Type == tea.KeyTab || key.Type == tea.KeyShiftTab {
		next := session.TabChat
		if m.state.Tab == session.TabChat {
			next = session.TabSearch
		}
		m.selectTab(next)
		return m, nil
	}
	if !m.typing() {
		switch key.String() {
		case "1":
			m.selectTab(session.TabSearch)
			return m, nil
		case "2":
			m.selectTab(session.TabChat)
			return m, nil
		case "q":
			m.abortSearch()
			return m, tea.Quit
		}
	}
	if m.state.Tab == session.TabSearch {
		return m, m.handleSearchKey(key)
	}
	return m, m.handleChatKey(key)
}

// typing reports whether keystrokes currently go into a text input.
func (m *model) typing() bool {
	switch m.focus {
	case focusSearchInput:
		return m.searchInput.Focused()
	case focusChatInput:
		return m.chatInput.Focused()
	default:
		return false
	}
}

func (m *model) busy() bool {
	return m.state.Loading || m.chatPending()
}

// selectTab applies the navigation shell rules and moves focus to the
// default control of the new view.
func (m *model) selectTab(tab session.Tab) {
	m.state = m.state.SelectTab(tab)
	m.errorMessage = ""
	if tab == session.TabSearch {
		m.focusSearch()
		return
	}
	m.searchInput.Blur()
	if _, _, ok := m.state.ChatPaper(); ok {
		m.focus = focusChatInput
		m.chatInput.Focus()
	} else {
		m.focus = focusChatTranscript
		m.chatInput.Blur()
	}
	m.chatDirty = true
}

func (m *model) focusSearch() {
	m.chatInput.Blur()
	m.resultsDirty = true
	if m.state.Loading {
		m.focus = focusResults
		m.searchInput.Blur()
		return
	}
	m.focus = focusSearchInput
	m.searchInput.Focus()
}

// focusResults moves focus to the results list. With no results it only
// does so while a search is loading, so esc there can cancel it.
func (m *model) focusResults() {
	if len(m.state.Results) == 0 && !m.state.Loading {
		return
	}
	m.focus = focusResults
	m.searchInput.Blur()
	m.resultsDirty = true
}

func (m *model) abortSearch() {
	if m.searchCancel != nil {
		m.searchCancel()
		m.searchCancel = nil
	}
}
