package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pubmedscout/internal/citation"
)

func (m *model) handleCitationKey(key tea.KeyMsg) tea.Cmd {
	paper := m.state.Citation
	switch key.String() {
	case "esc", "q":
		m.state = m.state.CloseCitation()
		m.resultsDirty = true
		return nil
	case "left", "h":
		m.shiftCitationStyle(-1)
	case "right", "l":
		m.shiftCitationStyle(1)
	case "m":
		m.citationStyle = citation.MLA
	case "a":
		m.citationStyle = citation.APA
	case "C":
		m.citationStyle = citation.Chicago
	case "y", "enter":
		text := citation.Format(*paper, m.citationStyle)
		return m.jobs.Start(context.Background(), jobKindCopy, copyJob(m.config.Clipboard, clipboardCitation, text))
	case "x":
		csl, err := citation.CSLString(*paper)
		if err != nil {
			m.logger.Error().Err(err).Str("pmid", paper.PMID).Msg("csl export failed")
			m.errorMessage = copyFailureMessage
			return nil
		}
		return m.jobs.Start(context.Background(), jobKindCopy, copyJob(m.config.Clipboard, clipboardCSL, csl))
	}
	return nil
}

func (m *model) shiftCitationStyle(delta int) {
	styles := citation.Styles()
	idx := 0
	for i, s := range styles {
		if s == m.citationStyle {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(styles)) % len(styles)
	m.citationStyle = styles[idx]
}

func (m *model) handleClipboardResult(msg clipboardResultMsg) {
	if msg.err != nil {
		m.logger.Error().Err(msg.err).Msg("clipboard write failed")
		m.infoMessage = ""
		m.errorMessage = copyFailureMessage
		return
	}
	m.errorMessage = ""
	if msg.kind == clipboardCSL {
		m.infoMessage = cslCopiedMessage
		return
	}
	m.infoMessage = copySuccessMessage
}

func (m *model) citationDialogView() string {
	paper := m.state.Citation
	if paper == nil {
		return ""
	}
	width := m.wrapWidth(12)
	var tabs []string
	for _, style := range citation.Styles() {
		label := " " + string(style) + " "
		if style == m.citationStyle {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	body := []string{
		sectionHeaderStyle.Render("Cite this paper"),
		helperStyle.Render(previewText(paper.Title, width)),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		citationTextStyle.Render(wordwrap.String(citation.Format(*paper, m.citationStyle), width)),
	}
	if m.errorMessage != "" {
		body = append(body, errorStyle.Render(m.errorMessage))
	} else if m.infoMessage != "" {
		body = append(body, successStyle.Render(m.infoMessage))
	}
	body = append(body, helperStyle.Render("←/→ style  •  m/a/C pick  •  y copy  •  x copy CSL-YAML  •  esc close"))
	return dialogStyle.Render(strings.Join(body, "\n\n"))
}
