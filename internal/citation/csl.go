package citation

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

// CSLItem is one CSL-YAML bibliography entry, readable by Pandoc and
// reference managers.
type CSLItem struct {
	ID       string    `yaml:"id"`
	Type     string    `yaml:"type"`
	Title    string    `yaml:"title"`
	Author   []CSLName `yaml:"author,omitempty"`
	Issued   *CSLDate  `yaml:"issued,omitempty"`
	URL      string    `yaml:"URL"`
	PMID     string    `yaml:"PMID"`
	Abstract string    `yaml:"abstract,omitempty"`
}

type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL encodes papers as a CSL-YAML list.
func WriteCSL(w io.Writer, papers []pubmed.Paper) error {
	items := make([]CSLItem, len(papers))
	for i, p := range papers {
		items[i] = toCSLItem(p)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return err
	}
	return enc.Close()
}

// CSLString is WriteCSL for a single paper, used by the clipboard export.
func CSLString(p pubmed.Paper) (string, error) {
	var b strings.Builder
	if err := WriteCSL(&b, []pubmed.Paper{p}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func toCSLItem(p pubmed.Paper) CSLItem {
	item := CSLItem{
		ID:       "pmid" + p.PMID,
		Type:     "article-journal",
		Title:    p.Title,
		URL:      p.SourceURL(),
		PMID:     p.PMID,
		Abstract: p.Abstract,
	}
	for _, a := range p.Authors {
		item.Author = append(item.Author, splitName(a))
	}
	if !p.PublicationDate.IsZero() {
		d := p.PublicationDate
		item.Issued = &CSLDate{DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}}}
	}
	return item
}

// splitName treats the last token as the family name. PubMed collective
// authors and single tokens become literals.
func splitName(name string) CSLName {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 || strings.Contains(strings.ToLower(name), "group") || strings.Contains(strings.ToLower(name), "consortium") {
		return CSLName{Literal: name}
	}
	return CSLName{Given: name[:idx], Family: name[idx+1:]}
}
