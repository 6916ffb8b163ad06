package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

func (m *model) handleResultsKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		if m.cursor == 0 && !m.state.Loading {
			m.focusSearch()
			return nil
		}
		m.moveCursor(-1)
	case "g", "home":
		m.moveCursor(-len(m.state.Results))
	case "G", "end":
		m.moveCursor(len(m.state.Results))
	case "pgdown":
		m.results.ViewDown()
	case "pgup":
		m.results.ViewUp()
	case "/", "i":
		m.focusSearch()
	case "esc":
		if m.state.Loading {
			m.cancelSearch()
			return nil
		}
		m.focusSearch()
	case "c":
		if paper, ok := m.focusedPaper(); ok {
			m.state = m.state.OpenCitation(paper)
			m.infoMessage = ""
			m.errorMessage = ""
		}
	case "enter", "t":
		if paper, ok := m.focusedPaper(); ok {
			m.openChat(paper.PMID, paper.Title)
		}
	case "o":
		if paper, ok := m.focusedPaper(); ok {
			return m.jobs.Start(context.Background(), jobKindOpen, openJob(m.config.Opener, pubmed.SourceURL(paper.PMID)))
		}
	}
	return nil
}

func (m *model) focusedPaper() (pubmed.Paper, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Results) {
		return pubmed.Paper{}, false
	}
	return m.state.Results[m.cursor], true
}

func (m *model) moveCursor(delta int) {
	if len(m.state.Results) == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.state.Results) {
		next = len(m.state.Results) - 1
	}
	if next == m.cursor {
		return
	}
	m.cursor = next
	m.resultsDirty = true
	m.refreshResultsIfDirty()
	m.ensureCursorVisible()
}

func (m *model) ensureCursorVisible() {
	if m.cursor >= len(m.resultsView.starts) {
		return
	}
	start := m.resultsView.starts[m.cursor]
	end := m.resultsView.ends[m.cursor]
	m.results.SetYOffset(scrollIntoView(m.results.YOffset, m.results.Height, start, end))
}

func (m *model) refreshResultsIfDirty() {
	if !m.resultsDirty {
		return
	}
	m.resultsDirty = false
	m.resultsView = m.buildResultsContent()
	offset := m.results.YOffset
	m.results.SetContent(m.resultsView.content)
	m.results.SetYOffset(offset)
}

// buildResultsContent renders one card per paper in response order. The
// focused card shows its full abstract.
func (m *model) buildResultsContent() displayView {
	cb := &contentBuilder{}
	view := displayView{}
	wrap := m.wrapWidth(6)
	showFocus := m.focus == focusResults
	for idx, paper := range m.state.Results {
		if idx > 0 {
			cb.WriteRune('\n')
		}
		focused := showFocus && idx == m.cursor
		view.starts = append(view.starts, cb.Line())
		card := renderCard(idx, paper, wrap, focused)
		if focused {
			card = focusedCardStyle.Render(card)
		} else {
			card = cardStyle.Render(card)
		}
		cb.WriteString(card)
		view.ends = append(view.ends, cb.Line())
		cb.WriteRune('\n')
	}
	view.content = cb.String()
	return view
}

func renderCard(idx int, paper pubmed.Paper, wrap int, expanded bool) string {
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render(wordwrap.String(fmt.Sprintf("%d. %s", idx+1, paper.Title), wrap)))
	b.WriteRune('\n')
	if len(paper.Authors) > 0 {
		b.WriteString(helperStyle.Render(previewText(strings.Join(paper.Authors, ", "), wrap)))
		b.WriteRune('\n')
	}
	abstract := wordwrap.String(paper.Abstract, wrap)
	if !expanded {
		abstract = clampLines(abstract, abstractPreviewLines)
	}
	b.WriteString(abstract)
	b.WriteRune('\n')
	footer := []string{
		paper.PublicationDate.Format("Jan 2, 2006"),
		scoreStyle.Render(fmt.Sprintf("Score: %.2f", paper.RelevanceScore)),
		fmt.Sprintf("PMID %s", paper.PMID),
	}
	b.WriteString(helperStyle.Render(strings.Join(footer, "  •  ")))
	if expanded {
		b.WriteRune('\n')
		b.WriteString(keyDescStyle.Render("c cite  •  enter chat  •  o open on PubMed"))
	}
	return b.String()
}
