package pubmed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const efetchFixture = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation Status="MEDLINE" Owner="NLM">
      <PMID Version="1">12345</PMID>
      <Article PubModel="Print">
        <Journal>
          <JournalIssue CitedMedium="Internet">
            <PubDate><Year>2023</Year><Month>May</Month><Day>09</Day></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Gene <i>X</i> Study.</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Genes matter.</AbstractText>
          <AbstractText Label="RESULTS">X matters more.</AbstractText>
        </Abstract>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y"><LastName>Smith</LastName><ForeName>Jane</ForeName></Author>
          <Author ValidYN="Y"><LastName>Nofore</LastName></Author>
          <Author ValidYN="Y"><CollectiveName>Gene X Consortium</CollectiveName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">12345</ArticleId>
        <ArticleId IdType="pmc">PMC777</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>67890</PMID>
      <Article>
        <Journal><JournalIssue><PubDate><MedlineDate>1998 Dec-1999 Jan</MedlineDate></PubDate></JournalIssue></Journal>
        <ArticleTitle></ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

const pmcFixture = `<pmc-articleset><article>
  <front><article-meta><abstract><p>Front abstract.</p></abstract></article-meta></front>
  <body>
    <sec><title>Intro</title><p>First   body paragraph.</p></sec>
    <sec><p>Second <italic>body</italic> paragraph.</p></sec>
  </body>
  <back><ref-list><ref><p>Reference text.</p></ref></ref-list></back>
</article></pmc-articleset>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		BaseURL:    server.URL,
		PMCBaseURL: server.URL + "/pmc",
		APIKey:     "secret",
		HTTPClient: server.Client(),
		CacheDir:   t.TempDir(),
	})
}

func TestSearchReturnsIDList(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/esearch.fcgi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("term") != "crispr" || q.Get("retmax") != "5" || q.Get("api_key") != "secret" || q.Get("sort") != "relevance" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"esearchresult":{"count":"2","idlist":["1","2"]}}`))
	})

	ids, err := client.Search(context.Background(), " crispr ", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if strings.Join(ids, ",") != "1,2" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestSearchRejectsEmptyTerm(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{})
	if _, err := client.Search(context.Background(), "   ", 10); err == nil {
		t.Fatal("expected error for blank term")
	}
}

func TestSearchSurfacesHTTPErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err := client.Search(context.Background(), "x", 1)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected 502 error, got %v", err)
	}
}

func TestFetchDetailsParsesArticles(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "12345,67890" {
			t.Errorf("id = %q", got)
		}
		_, _ = w.Write([]byte(efetchFixture))
	})

	papers, err := client.FetchDetails(context.Background(), []string{"12345", "67890"})
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("len = %d", len(papers))
	}

	first := papers[0]
	if first.Title != "Gene X Study." {
		t.Fatalf("title = %q", first.Title)
	}
	if first.Abstract != "BACKGROUND: Genes matter. RESULTS: X matters more." {
		t.Fatalf("abstract = %q", first.Abstract)
	}
	if strings.Join(first.Authors, "|") != "Jane Smith|Gene X Consortium" {
		t.Fatalf("authors = %#v", first.Authors)
	}
	if !first.PublicationDate.Equal(time.Date(2023, time.May, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", first.PublicationDate)
	}

	second := papers[1]
	if second.Title != placeholderTitle || second.Abstract != placeholderAbstract {
		t.Fatalf("placeholders missing: %+v", second)
	}
	if second.Year() != 1998 {
		t.Fatalf("medline date year = %d", second.Year())
	}
}

func TestFetchContentPrefersPMCBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("db") {
		case "pubmed":
			_, _ = w.Write([]byte(efetchFixture))
		case "pmc":
			if r.URL.Query().Get("id") != "777" {
				t.Errorf("pmc id = %q", r.URL.Query().Get("id"))
			}
			_, _ = w.Write([]byte(pmcFixture))
		default:
			http.NotFound(w, r)
		}
	})

	content, err := client.FetchContent(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if !content.HasFullText {
		t.Fatal("expected full text")
	}
	if content.PMCID != "PMC777" {
		t.Fatalf("pmcid = %q", content.PMCID)
	}
	if content.FullText != "First body paragraph. Second body paragraph." {
		t.Fatalf("full text = %q", content.FullText)
	}
}

func TestFetchContentFallsBackToAbstract(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("db") == "pubmed":
			_, _ = w.Write([]byte(efetchFixture))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	})

	content, err := client.FetchContent(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchContent: %v", err)
	}
	if content.HasFullText {
		t.Fatal("expected abstract fallback")
	}
	if content.FullText != content.Abstract {
		t.Fatalf("full text should be the abstract, got %q", content.FullText)
	}
}

func TestFetchContentNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<PubmedArticleSet></PubmedArticleSet>`))
	})
	_, err := client.FetchContent(context.Background(), "1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchContentRejectsInvalidPMID(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{})
	if _, err := client.FetchContent(context.Background(), "12a"); err == nil {
		t.Fatal("expected error for non-numeric pmid")
	}
}

func TestExtractBodyParagraphsSkipsFrontAndBack(t *testing.T) {
	t.Parallel()

	text, err := extractBodyParagraphs(strings.NewReader(pmcFixture))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Contains(text, "Front abstract") || strings.Contains(text, "Reference text") {
		t.Fatalf("front/back leaked into body: %q", text)
	}
	if text != "First body paragraph.\n\nSecond body paragraph." {
		t.Fatalf("body = %q", text)
	}
}
