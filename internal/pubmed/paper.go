package pubmed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// SourceBaseURL is the public landing page prefix for a PMID.
const SourceBaseURL = "https://pubmed.ncbi.nlm.nih.gov/"

const (
	placeholderTitle    = "No title available"
	placeholderAbstract = "No abstract available"
	wireDateLayout      = "2006-01-02"
)

var pmidRegexp = regexp.MustCompile(`^[0-9]+$`)

// Paper is a PubMed record as returned by the search API. Values are treated
// as immutable once decoded.
type Paper struct {
	PMID            string
	Title           string
	Authors         []string
	Abstract        string
	PublicationDate time.Time
	RelevanceScore  float64
}

// Year returns the calendar year of the publication date.
func (p Paper) Year() int {
	return p.PublicationDate.Year()
}

// SourceURL returns the PubMed landing page for the paper.
func (p Paper) SourceURL() string {
	return SourceURL(p.PMID)
}

// SourceURL builds the PubMed landing page URL for a PMID.
func SourceURL(pmid string) string {
	return SourceBaseURL + strings.TrimSpace(pmid)
}

type wirePaper struct {
	PMID            string   `json:"pmid"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	PublicationDate string   `json:"publication_date"`
	RelevanceScore  *float64 `json:"relevance_score"`
}

// MarshalJSON encodes the paper using the search API field names.
func (p Paper) MarshalJSON() ([]byte, error) {
	score := p.RelevanceScore
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	return json.Marshal(wirePaper{
		PMID:            p.PMID,
		Title:           p.Title,
		Abstract:        p.Abstract,
		Authors:         authors,
		PublicationDate: p.PublicationDate.Format(wireDateLayout),
		RelevanceScore:  &score,
	})
}

// UnmarshalJSON decodes and validates a single paper.
func (p *Paper) UnmarshalJSON(data []byte) error {
	var wire wirePaper
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	paper, err := wire.toPaper()
	if err != nil {
		return err
	}
	*p = paper
	return nil
}

// ErrInvalidPaper marks a record that failed schema validation.
var ErrInvalidPaper = errors.New("invalid paper record")

func (w wirePaper) toPaper() (Paper, error) {
	pmid := strings.TrimSpace(w.PMID)
	if !pmidRegexp.MatchString(pmid) {
		return Paper{}, fmt.Errorf("%w: pmid %q is not numeric", ErrInvalidPaper, w.PMID)
	}
	if w.RelevanceScore == nil {
		return Paper{}, fmt.Errorf("%w: pmid %s missing relevance_score", ErrInvalidPaper, pmid)
	}
	date, err := ParseDate(w.PublicationDate)
	if err != nil {
		return Paper{}, fmt.Errorf("%w: pmid %s: %v", ErrInvalidPaper, pmid, err)
	}
	title := normalizeWhitespace(w.Title)
	if title == "" {
		title = placeholderTitle
	}
	abstract := normalizeWhitespace(w.Abstract)
	if abstract == "" {
		abstract = placeholderAbstract
	}
	authors := make([]string, 0, len(w.Authors))
	for _, author := range w.Authors {
		if author = normalizeWhitespace(author); author != "" {
			authors = append(authors, author)
		}
	}
	return Paper{
		PMID:            pmid,
		Title:           title,
		Authors:         authors,
		Abstract:        abstract,
		PublicationDate: date,
		RelevanceScore:  *w.RelevanceScore,
	}, nil
}

// DecodePapers reads a JSON array of papers. Records that fail validation are
// skipped and counted in dropped; a payload that is not an array is an error.
func DecodePapers(r io.Reader) (papers []Paper, dropped int, err error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}
	papers = make([]Paper, 0, len(raw))
	for _, entry := range raw {
		var paper Paper
		if err := json.Unmarshal(entry, &paper); err != nil {
			dropped++
			continue
		}
		papers = append(papers, paper)
	}
	return papers, dropped, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-Jan-02",
	"2006-Jan-2",
	"2006-01",
	"2006-Jan",
	"2006",
	time.RFC3339,
}

// ParseDate accepts the date shapes produced by PubMed-derived payloads.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("publication_date is empty")
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable publication_date %q", value)
}

var extraneousWhitespace = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return extraneousWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}
