package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/pubmedscout/internal/chatapi"
	"github.com/csheth/pubmedscout/internal/guide"
)

// openChat routes to the chat view for one paper. The transcript is kept
// while the same paper stays selected and reset when another is chosen.
func (m *model) openChat(pmid, title string) {
	m.state = m.state.OpenChat(pmid, title)
	if pmid != m.chatPMID {
		m.chatPMID = pmid
		m.exchanges = nil
		m.starterCursor = 0
		m.chatInput.SetValue("")
	}
	m.searchInput.Blur()
	m.focus = focusChatInput
	m.chatInput.Focus()
	m.errorMessage = ""
	m.infoMessage = ""
	m.chatDirty = true
	m.logger.Info().Str("route", m.state.Route.String()).Msg("chat opened")
}

func (m *model) starters() []guide.Step {
	_, title, ok := m.state.ChatPaper()
	if !ok {
		return nil
	}
	return guide.Build(guide.Metadata{Title: title, HasAbstract: true})
}

func (m *model) handleChatKey(key tea.KeyMsg) tea.Cmd {
	pmid, _, ok := m.state.ChatPaper()
	if !ok {
		return nil
	}
	if m.focus != focusChatInput {
		switch key.String() {
		case "i", "enter":
			m.focus = focusChatInput
			m.chatInput.Focus()
			m.chatDirty = true
		case "j", "down":
			m.transcript.LineDown(1)
		case "k", "up":
			m.transcript.LineUp(1)
		case "pgdown":
			m.transcript.ViewDown()
		case "pgup":
			m.transcript.ViewUp()
		case "g":
			m.transcript.GotoTop()
		case "G":
			m.transcript.GotoBottom()
		}
		return nil
	}

	switch key.Type {
	case tea.KeyEsc:
		m.chatInput.Blur()
		m.focus = focusChatTranscript
		m.chatDirty = true
		return nil
	case tea.KeyUp, tea.KeyDown:
		if len(m.exchanges) == 0 && strings.TrimSpace(m.chatInput.Value()) == "" {
			m.moveStarter(key.Type == tea.KeyDown)
			return nil
		}
		if key.Type == tea.KeyUp {
			m.transcript.LineUp(1)
		} else {
			m.transcript.LineDown(1)
		}
		return nil
	case tea.KeyPgUp:
		m.transcript.ViewUp()
		return nil
	case tea.KeyPgDown:
		m.transcript.ViewDown()
		return nil
	case tea.KeyEnter:
		question := strings.TrimSpace(m.chatInput.Value())
		if question == "" && len(m.exchanges) == 0 {
			if steps := m.starters(); m.starterCursor < len(steps) {
				question = steps[m.starterCursor].Prompt
			}
		}
		return m.askQuestion(pmid, question)
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(key)
	return cmd
}

func (m *model) moveStarter(down bool) {
	steps := m.starters()
	if len(steps) == 0 {
		return
	}
	if down {
		m.starterCursor = (m.starterCursor + 1) % len(steps)
	} else {
		m.starterCursor = (m.starterCursor - 1 + len(steps)) % len(steps)
	}
	m.chatDirty = true
}

// askQuestion appends a pending exchange and sends it. One question is in
// flight at a time. Every question takes a fresh chatSeq, which survives
// transcript resets, so a late answer can only land on its own exchange.
func (m *model) askQuestion(pmid, question string) tea.Cmd {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	if m.chatPending() {
		m.infoMessage = "Waiting for the previous answer…"
		return nil
	}
	m.chatSeq++
	seq := m.chatSeq
	m.exchanges = append(m.exchanges, chatExchange{
		Seq:      seq,
		Question: question,
		Pending:  true,
	})
	m.chatInput.SetValue("")
	m.infoMessage = ""
	m.errorMessage = ""
	m.chatDirty = true
	m.refreshTranscriptIfDirty()
	m.transcript.GotoBottom()
	m.logger.Info().Str("pmid", pmid).Uint64("seq", seq).Msg("question sent")
	return tea.Batch(
		m.jobs.Start(context.Background(), jobKindChat, askJob(m.config.Chat, pmid, seq, question)),
		m.spinner.Tick,
	)
}

func (m *model) chatPending() bool {
	for _, ex := range m.exchanges {
		if ex.Pending {
			return true
		}
	}
	return false
}

func (m *model) handleChatAnswer(msg chatAnswerMsg) {
	if msg.pmid != m.chatPMID {
		m.logger.Debug().Str("pmid", msg.pmid).Msg("dropping answer for another paper")
		return
	}
	entry := m.pendingExchange(msg.seq)
	if entry == nil {
		m.logger.Debug().Uint64("seq", msg.seq).Msg("dropping stale chat answer")
		return
	}
	entry.Pending = false
	if msg.err != nil {
		m.logger.Error().Err(msg.err).Str("pmid", msg.pmid).Msg("chat failed")
		entry.Error = chatErrorMessage(msg.err)
		entry.Answer = ""
	} else {
		entry.Answer = msg.answer
		entry.Error = ""
	}
	m.chatDirty = true
	m.refreshTranscriptIfDirty()
	m.transcript.GotoBottom()
}

func (m *model) pendingExchange(seq uint64) *chatExchange {
	for i := range m.exchanges {
		if m.exchanges[i].Seq == seq && m.exchanges[i].Pending {
			return &m.exchanges[i]
		}
	}
	return nil
}

func chatErrorMessage(err error) string {
	if errors.Is(err, chatapi.ErrPaperUnavailable) {
		return "Paper not found or couldn't be fetched."
	}
	return fmt.Sprintf("Sorry, something went wrong: %v", err)
}

func (m *model) refreshTranscriptIfDirty() {
	if !m.chatDirty {
		return
	}
	m.chatDirty = false
	offset := m.transcript.YOffset
	m.transcript.SetContent(m.buildTranscriptContent())
	m.transcript.SetYOffset(offset)
}

func (m *model) buildTranscriptContent() string {
	cb := &contentBuilder{}
	wrap := m.wrapWidth(4)
	if len(m.exchanges) == 0 {
		cb.WriteString(sectionHeaderStyle.Render("Starter questions"))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("↑/↓ to pick, Enter to ask, or type your own question."))
		cb.WriteRune('\n')
		for idx, step := range m.starters() {
			line := fmt.Sprintf("%s: %s", step.Title, step.Prompt)
			if idx == m.starterCursor {
				cb.WriteString(currentLineStyle.Render("▸ " + wordwrap.String(line, wrap-2)))
			} else {
				cb.WriteString(indentMultiline(wordwrap.String(line, wrap-2), "  "))
			}
			cb.WriteRune('\n')
		}
		return cb.String()
	}
	for idx, ex := range m.exchanges {
		if idx > 0 {
			cb.WriteRune('\n')
		}
		cb.WriteString(youLabelStyle.Render("You"))
		cb.WriteRune('\n')
		cb.WriteString(indentMultiline(wordwrap.String(ex.Question, wrap), "  "))
		cb.WriteRune('\n')
		cb.WriteString(scoutLabelStyle.Render("Scout"))
		cb.WriteRune('\n')
		switch {
		case ex.Pending:
			cb.WriteString(helperStyle.Render(fmt.Sprintf("  %s Thinking…", m.spinner.View())))
		case ex.Error != "":
			cb.WriteString(errorStyle.Render(indentMultiline(wordwrap.String(ex.Error, wrap), "  ")))
		default:
			cb.WriteString(indentMultiline(wordwrap.String(ex.Answer, wrap), "  "))
		}
		cb.WriteRune('\n')
	}
	return cb.String()
}
