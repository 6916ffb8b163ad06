package tui

import (
	"fmt"
	"strings"
)

// Rows reserved around each scrolling panel: headings, inputs, helper text,
// status line and footer.
const (
	searchChrome = 10
	chatChrome   = 9
	minPanelRows = 6
)

type pageLayout struct {
	windowWidth   int
	windowHeight  int
	sidebarWidth  int
	mainWidth     int
	resultsHeight int
	chatHeight    int
}

func newPageLayout() pageLayout {
	return pageLayout{
		sidebarWidth:  sidebarWidth,
		mainWidth:     80,
		resultsHeight: 16,
		chatHeight:    16,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	l.sidebarWidth = sidebarWidth
	main := width - l.sidebarWidth - viewportHorizontalPadding
	if main < minViewportWidth {
		main = minViewportWidth
	}
	l.mainWidth = main
	l.resultsHeight = height - searchChrome
	if l.resultsHeight < minPanelRows {
		l.resultsHeight = minPanelRows
	}
	l.chatHeight = height - chatChrome
	if l.chatHeight < minPanelRows {
		l.chatHeight = minPanelRows
	}
}

// displayView is rendered viewport content plus the first and last line of
// each block, so the cursor can be kept on screen.
type displayView struct {
	content string
	starts  []int
	ends    []int
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func shortenList(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s…", strings.Join(items[:limit], ", "))
}

// clampLines keeps the first limit lines of text, marking the cut with an
// ellipsis.
func clampLines(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= limit {
		return text
	}
	lines = lines[:limit]
	lines[limit-1] = strings.TrimRight(lines[limit-1], " ") + "…"
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.layout.mainWidth
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// scrollIntoView returns the y offset that shows lines start..end in a
// viewport of the given height, moving as little as possible.
func scrollIntoView(offset, height, start, end int) int {
	if height <= 0 {
		return offset
	}
	if start < offset {
		return start
	}
	if end >= offset+height {
		next := end - height + 1
		if next > start {
			next = start
		}
		return next
	}
	return offset
}
