package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pubmedscout/internal/session"
)

func (m *model) View() string {
	var main string
	switch {
	case m.state.CitationOpen():
		main = m.citationDialogView()
	case m.state.Tab == session.TabChat:
		main = m.chatView()
	default:
		main = m.searchView()
	}
	main = joinNonEmpty([]string{main, m.statusBarView()})
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), mainPanelStyle.Render(main))
}

func (m *model) searchView() string {
	m.refreshResultsIfDirty()
	var b strings.Builder
	b.WriteString(titleStyle.Render(searchHeading))
	b.WriteRune('\n')
	b.WriteString(inputBoxStyle.Render(m.searchInput.View()))
	b.WriteRune('\n')
	switch {
	case m.state.Loading:
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s Searching…  (esc to cancel)", m.spinner.View())))
	case m.state.Err != "":
		b.WriteString(errorStyle.Render(m.state.Err))
	case m.errorMessage != "":
		b.WriteString(errorStyle.Render(m.errorMessage))
	default:
		b.WriteString(helperStyle.Render(searchHelperText))
	}
	parts := []string{b.String()}
	if len(m.state.Results) > 0 {
		parts = append(parts, m.results.View())
	}
	return joinNonEmpty(parts)
}

func (m *model) chatView() string {
	pmid, title, ok := m.state.ChatPaper()
	header := []string{titleStyle.Render(chatHeading)}
	if !ok {
		header = append(header, helperStyle.Render(chatNoPaperHint))
		return joinNonEmpty(header)
	}
	header = append(header, helperStyle.Render(fmt.Sprintf("PMID: %s • Ask questions about this paper and I'll help you understand it better.", pmid)))
	if title != "" {
		header = append(header, heroTitleStyle.Render(wordwrap.String(title, m.wrapWidth(4))))
	}
	m.refreshTranscriptIfDirty()
	input := inputBoxStyle.Render(m.chatInput.View())
	help := "enter ask • esc scroll transcript • tab search"
	if m.focus != focusChatInput {
		help = "i type • j/k scroll • g/G top/bottom • tab search"
	}
	return joinNonEmpty([]string{
		strings.Join(header, "\n"),
		m.transcript.View(),
		input,
		helperStyle.Render(help),
	})
}

func (m *model) statusBarView() string {
	stats := []string{}
	if m.state.Query != "" {
		stats = append(stats, fmt.Sprintf("Query %q", previewText(m.state.Query, 24)))
	}
	stats = append(stats, fmt.Sprintf("Results %d", len(m.state.Results)))
	if m.state.Tab == session.TabSearch && m.focus == focusResults && len(m.state.Results) > 0 {
		stats = append(stats, fmt.Sprintf("Card %d/%d", m.cursor+1, len(m.state.Results)))
	}
	stats = append(stats, m.jobStatusBadges()...)
	line := statusBarStyle.Render(strings.Join(stats, "  •  "))
	if m.state.CitationOpen() {
		return line
	}
	if m.state.Tab == session.TabSearch && m.focus == focusResults {
		line = joinLines(line, helperStyle.Render("j/k move • c cite • enter chat • o open • / search"))
	}
	if m.state.Tab == session.TabChat && m.errorMessage != "" {
		line = joinLines(line, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		line = joinLines(line, successStyle.Render(m.infoMessage))
	}
	return line
}

// jobStatusBadges lists jobs that are running or failed last time.
func (m *model) jobStatusBadges() []string {
	kinds := make([]string, 0, len(m.jobSnapshots))
	for kind := range m.jobSnapshots {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	var badges []string
	for _, kind := range kinds {
		snap := m.jobSnapshots[jobKind(kind)]
		switch snap.Status {
		case jobStatusRunning:
			badges = append(badges, kind+" running")
		case jobStatusFailed:
			badges = append(badges, kind+" failed")
		}
	}
	return badges
}

func joinLines(parts ...string) string {
	return strings.Join(parts, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

var (
	accentColor = lipgloss.Color("#3b82f6")
	mutedColor  = lipgloss.Color("244")

	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0def4"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c"))
	helperStyle        = lipgloss.NewStyle().Foreground(mutedColor)
	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff8c00"))
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	currentLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
	mainPanelStyle     = lipgloss.NewStyle().PaddingLeft(2)

	sidebarStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 1)
	sidebarTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	activeTabStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#bde0fe"))
	inactiveTabStyle  = lipgloss.NewStyle().Foreground(mutedColor)

	cardStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	focusedCardStyle = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(accentColor).Padding(0, 1)
	cardTitleStyle   = lipgloss.NewStyle().Bold(true)
	scoreStyle       = lipgloss.NewStyle().Foreground(accentColor).Bold(true)

	dialogStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
	citationTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4")).Italic(true)
	youLabelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd166"))
	scoutLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c4a7e7"))
)
