// Package citation renders PubMed papers as formatted references.
package citation

import (
	"fmt"
	"strings"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

// Style selects a citation convention.
type Style string

const (
	MLA     Style = "MLA"
	APA     Style = "APA"
	Chicago Style = "Chicago"
)

// Styles returns the supported styles in display order.
func Styles() []Style {
	return []Style{MLA, APA, Chicago}
}

// ParseStyle matches a style name case-insensitively.
func ParseStyle(name string) (Style, bool) {
	for _, s := range Styles() {
		if strings.EqualFold(strings.TrimSpace(name), string(s)) {
			return s, true
		}
	}
	return "", false
}

// Format renders p in style s. Unknown styles yield the empty string.
func Format(p pubmed.Paper, s Style) string {
	year := p.Year()
	switch s {
	case MLA:
		return fmt.Sprintf("%s \"%s.\" PubMed, National Library of Medicine, %d, pubmed.ncbi.nlm.nih.gov/%s.",
			authorSegment(p.Authors, "and"), p.Title, year, p.PMID)
	case APA:
		return fmt.Sprintf("%s (%d). %s. PubMed. %s",
			authorSegment(p.Authors, "&"), year, p.Title, pubmed.SourceURL(p.PMID))
	case Chicago:
		return fmt.Sprintf("%s \"%s.\" PubMed (%d). %s.",
			authorSegment(p.Authors, "and"), p.Title, year, pubmed.SourceURL(p.PMID))
	default:
		return ""
	}
}

// authorSegment applies the shared author rule; only the two-author
// conjunction differs between styles.
func authorSegment(authors []string, conjunction string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0] + "."
	case 2:
		return fmt.Sprintf("%s, %s %s.", authors[0], conjunction, authors[1])
	default:
		return authors[0] + ", et al."
	}
}
