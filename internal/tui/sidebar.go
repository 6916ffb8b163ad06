package tui

import (
	"strings"

	"github.com/csheth/pubmedscout/internal/session"
)

type sidebarTab struct {
	tab   session.Tab
	key   string
	label string
}

var sidebarTabs = []sidebarTab{
	{tab: session.TabSearch, key: "1", label: "Search"},
	{tab: session.TabChat, key: "2", label: "Chat Doc"},
}

func (m *model) sidebarView() string {
	lines := []string{sidebarTitleStyle.Render(appTitle), ""}
	for _, item := range sidebarTabs {
		label := item.key + "  " + item.label
		if item.tab == m.state.Tab {
			lines = append(lines, activeTabStyle.Width(sidebarWidth-4).Render("▸ "+label))
		} else {
			lines = append(lines, inactiveTabStyle.Width(sidebarWidth-4).Render("  "+label))
		}
	}
	lines = append(lines, "", helperStyle.Render("tab switch • q quit"))
	if pmid, _, ok := m.state.ChatPaper(); ok {
		lines = append(lines, "", helperStyle.Render("Paper "+pmid))
	}
	height := m.layout.windowHeight - 2
	if height < len(lines) {
		height = len(lines)
	}
	return sidebarStyle.Width(sidebarWidth - 2).Height(height).Render(strings.Join(lines, "\n"))
}
