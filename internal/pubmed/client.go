package pubmed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/csheth/pubmedscout/internal/httputil"
)

const (
	// DefaultBaseURL is the NCBI E-utilities endpoint.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// DefaultPMCBaseURL hosts PMC article pages and PDFs.
	DefaultPMCBaseURL = "https://www.ncbi.nlm.nih.gov/pmc/articles"

	defaultHTTPTimeout = 30 * time.Second
	toolName           = "pubmedscout"
)

// ErrNotFound is returned when PubMed has no record for a PMID.
var ErrNotFound = errors.New("paper not found")

// ClientConfig wires the E-utilities client.
type ClientConfig struct {
	BaseURL    string
	PMCBaseURL string
	APIKey     string
	Email      string
	HTTPClient *http.Client
	// CacheDir overrides where PMC PDFs are cached; empty uses the user cache dir.
	CacheDir string
}

// Client talks to NCBI E-utilities.
type Client struct {
	baseURL    string
	pmcBaseURL string
	apiKey     string
	email      string
	http       *http.Client
	cacheDir   string
}

// Content is the text used to ground a chat about a paper.
type Content struct {
	PMID        string
	Title       string
	Abstract    string
	PMCID       string
	FullText    string
	HasFullText bool
}

// NewClient builds a Client, filling defaults for empty fields.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	pmcBase := strings.TrimRight(cfg.PMCBaseURL, "/")
	if pmcBase == "" {
		pmcBase = DefaultPMCBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:    base,
		pmcBaseURL: pmcBase,
		apiKey:     cfg.APIKey,
		email:      cfg.Email,
		http:       client,
		cacheDir:   cfg.CacheDir,
	}
}

// Search runs esearch sorted by relevance and returns up to max PMIDs.
func (c *Client) Search(ctx context.Context, term string, max int) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("search term cannot be empty")
	}
	if max <= 0 {
		max = 50
	}
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmax":  {strconv.Itoa(max)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed struct {
		Result struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode esearch response: %w", err)
	}
	return parsed.Result.IDList, nil
}

// FetchDetails runs efetch for the PMIDs and parses each article. Articles
// without a PMID are skipped.
func (c *Client) FetchDetails(ctx context.Context, pmids []string) ([]Paper, error) {
	if len(pmids) == 0 {
		return nil, nil
	}
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	set, err := decodeArticleSet(body)
	if err != nil {
		return nil, err
	}
	papers := make([]Paper, 0, len(set.Articles))
	for _, article := range set.Articles {
		paper, ok := article.toPaper()
		if !ok {
			zerolog.Ctx(ctx).Warn().Msg("skipping pubmed article without pmid")
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// FetchContent resolves the best available text for a paper: PMC body
// paragraphs, then the PMC PDF, then the abstract.
func (c *Client) FetchContent(ctx context.Context, pmid string) (*Content, error) {
	pmid = strings.TrimSpace(pmid)
	if !pmidRegexp.MatchString(pmid) {
		return nil, fmt.Errorf("invalid pmid %q", pmid)
	}
	log := zerolog.Ctx(ctx).With().Str("pmid", pmid).Logger()

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"xml"},
	}
	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	set, err := decodeArticleSet(body)
	body.Close()
	if err != nil {
		return nil, err
	}
	if len(set.Articles) == 0 {
		return nil, ErrNotFound
	}
	article := set.Articles[0]

	content := &Content{
		PMID:     pmid,
		Title:    normalizeWhitespace(article.Citation.Article.Title.String()),
		Abstract: normalizeWhitespace(article.abstractText()),
		PMCID:    article.pmcID(),
	}
	if content.Title == "" {
		content.Title = "Title not available"
	}
	if content.Abstract == "" {
		content.Abstract = "Abstract not available"
	}

	if content.PMCID != "" {
		fullText, err := c.fetchPMCBody(ctx, content.PMCID)
		if err != nil {
			log.Warn().Err(err).Str("pmcid", content.PMCID).Msg("pmc body unavailable")
		}
		if fullText == "" {
			fullText, err = c.fetchPMCPDF(ctx, content.PMCID)
			if err != nil {
				log.Warn().Err(err).Str("pmcid", content.PMCID).Msg("pmc pdf unavailable")
			}
		}
		content.FullText = normalizeWhitespace(fullText)
	}
	content.HasFullText = content.FullText != ""
	if !content.HasFullText {
		content.FullText = content.Abstract
	}
	return content, nil
}

func (c *Client) fetchPMCBody(ctx context.Context, pmcID string) (string, error) {
	params := url.Values{
		"db":      {"pmc"},
		"id":      {strings.TrimPrefix(pmcID, "PMC")},
		"rettype": {"xml"},
	}
	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return extractBodyParagraphs(body)
}

// extractBodyParagraphs pulls the <p> text out of a JATS document, ignoring
// front matter and back matter (abstract, references, acknowledgements).
func extractBodyParagraphs(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse pmc article: %w", err)
	}
	doc.Find("front, back, ref-list").Remove()
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := normalizeWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n"), nil
}

func (c *Client) fetchPMCPDF(ctx context.Context, pmcID string) (string, error) {
	cache, err := newPDFCache(c.cacheDir, c.http)
	if err != nil {
		return "", err
	}
	pdfURL := fmt.Sprintf("%s/%s/pdf/", c.pmcBaseURL, ensurePMCPrefix(pmcID))
	path, err := cache.Fetch(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	return readPDFText(path)
}

func readPDFText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return "", err
	}
	return normalizeWhitespace(builder.String()), nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	params.Set("tool", toolName)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("pubmed %s request failed: %w", endpoint, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pubmed API error: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

func ensurePMCPrefix(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(strings.ToUpper(id), "PMC") {
		return "PMC" + id[3:]
	}
	return "PMC" + id
}
