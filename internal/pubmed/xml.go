package pubmed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
	Data     pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID    string      `xml:"PMID"`
	Article articleInfo `xml:"Article"`
}

type articleInfo struct {
	Title    markupText   `xml:"ArticleTitle"`
	Abstract []markupText `xml:"Abstract>AbstractText"`
	Authors  []authorInfo `xml:"AuthorList>Author"`
	PubDate  pubDate      `xml:"Journal>JournalIssue>PubDate"`
}

type authorInfo struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	CollectiveName string `xml:"CollectiveName"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type pubmedData struct {
	ArticleIDs []articleID `xml:"ArticleIdList>ArticleId"`
}

type articleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

// markupText keeps the character data of an element including text nested in
// inline markup such as <i> or <sup>.
type markupText struct {
	Label string
	text  string
}

func (m *markupText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			m.Label = attr.Value
		}
	}
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	m.text = b.String()
	return nil
}

func (m markupText) String() string {
	return m.text
}

func decodeArticleSet(r io.Reader) (*articleSet, error) {
	var set articleSet
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	if err := decoder.Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode pubmed response: %w", err)
	}
	return &set, nil
}

func (a pubmedArticle) toPaper() (Paper, bool) {
	pmid := strings.TrimSpace(a.Citation.PMID)
	if pmid == "" {
		return Paper{}, false
	}
	title := normalizeWhitespace(a.Citation.Article.Title.String())
	if title == "" {
		title = placeholderTitle
	}
	abstract := normalizeWhitespace(a.abstractText())
	if abstract == "" {
		abstract = placeholderAbstract
	}
	authors := make([]string, 0, len(a.Citation.Article.Authors))
	for _, author := range a.Citation.Article.Authors {
		if name := author.fullName(); name != "" {
			authors = append(authors, name)
		}
	}
	return Paper{
		PMID:            pmid,
		Title:           title,
		Authors:         authors,
		Abstract:        abstract,
		PublicationDate: a.Citation.Article.PubDate.toTime(),
	}, true
}

func (a pubmedArticle) abstractText() string {
	sections := a.Citation.Article.Abstract
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		text := strings.TrimSpace(section.String())
		if text == "" {
			continue
		}
		if section.Label != "" && len(sections) > 1 {
			text = section.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func (a pubmedArticle) pmcID() string {
	for _, id := range a.Data.ArticleIDs {
		if strings.EqualFold(id.Type, "pmc") {
			return strings.TrimSpace(id.Value)
		}
	}
	return ""
}

func (a authorInfo) fullName() string {
	if name := strings.TrimSpace(a.CollectiveName); name != "" {
		return name
	}
	last := strings.TrimSpace(a.LastName)
	fore := strings.TrimSpace(a.ForeName)
	if last == "" || fore == "" {
		return ""
	}
	return fore + " " + last
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// toTime follows the efetch conventions: missing year means 2000, missing
// month or day means the first.
func (p pubDate) toTime() time.Time {
	year := atoiOr(p.Year, 0)
	if year == 0 && len(p.MedlineDate) >= 4 {
		year = atoiOr(p.MedlineDate[:4], 0)
	}
	if year == 0 {
		year = 2000
	}
	month := parseMonth(p.Month)
	day := atoiOr(p.Day, 1)
	if day < 1 || day > 31 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func parseMonth(value string) time.Month {
	value = strings.TrimSpace(value)
	if n := atoiOr(value, 0); n >= 1 && n <= 12 {
		return time.Month(n)
	}
	if len(value) >= 3 {
		if m, ok := monthNames[strings.ToLower(value[:3])]; ok {
			return m
		}
	}
	return time.January
}

func atoiOr(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
