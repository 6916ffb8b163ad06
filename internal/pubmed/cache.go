package pubmed

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	cacheEnvVar     = "PUBMEDSCOUT_CACHE_DIR"
	cacheSubdir     = "pubmedscout/pdfs"
	cacheTTL        = 7 * 24 * time.Hour
	pdfHTTPTimeout  = 90 * time.Second
	maxPDFBodyBytes = 64 << 20
)

var pmcIDRegexp = regexp.MustCompile(`(?i)PMC([0-9]+)`)

// pdfCache keeps PMC PDFs on disk keyed by PMC id. Stale entries are
// revalidated with the stored ETag and interrupted downloads resume from the
// partial file.
type pdfCache struct {
	dir    string
	client *http.Client
}

type cacheEntry struct {
	pdf     string
	meta    string
	partial string
}

type cachedPDFMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	StoredAt     time.Time `json:"stored_at"`
	Size         int64     `json:"size"`
}

// newPDFCache resolves the cache directory from dir, then the
// PUBMEDSCOUT_CACHE_DIR variable, then the user cache dir.
func newPDFCache(dir string, client *http.Client) (*pdfCache, error) {
	if dir == "" {
		dir = os.Getenv(cacheEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "pubmedscout-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf cache dir: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: pdfHTTPTimeout}
	}
	return &pdfCache{dir: dir, client: client}, nil
}

// Fetch returns a local path for pdfURL, downloading it when the cached copy
// is missing or older than cacheTTL. A stale copy is still served when the
// refresh fails.
func (c *pdfCache) Fetch(ctx context.Context, pdfURL string) (string, error) {
	entry := c.entryFor(cacheKey(pdfURL))

	current, statErr := os.Stat(entry.pdf)
	if statErr == nil && current.Size() > 0 && time.Since(current.ModTime()) < cacheTTL {
		return entry.pdf, nil
	}
	if statErr != nil {
		current = nil
	}

	meta, _ := loadCacheMeta(entry.meta)
	err := c.refresh(ctx, pdfURL, entry, meta, current)
	if err == nil {
		return entry.pdf, nil
	}
	if current != nil && current.Size() > 0 {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", pdfURL).Msg("serving stale cached pdf")
		return entry.pdf, nil
	}
	return "", err
}

func (c *pdfCache) refresh(ctx context.Context, pdfURL string, entry cacheEntry, meta cachedPDFMeta, current os.FileInfo) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", toolName)
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resumeFrom := int64(0)
	if info, err := os.Stat(entry.partial); err == nil && info.Size() > 0 {
		resumeFrom = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
		switch {
		case meta.ETag != "":
			req.Header.Set("If-Range", meta.ETag)
		case meta.LastModified != "":
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current == nil {
			// A 304 without a local copy means our metadata is wrong.
			os.Remove(entry.meta)
			return c.refresh(ctx, pdfURL, entry, cachedPDFMeta{}, nil)
		}
		meta.StoredAt = time.Now().UTC()
		now := time.Now()
		os.Chtimes(entry.pdf, now, now)
		return storeCacheMeta(entry.meta, meta)
	case http.StatusOK:
		return c.commit(resp, entry, false)
	case http.StatusPartialContent:
		return c.commit(resp, entry, resumeFrom > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pdf download failed: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
}

// commit streams the body into the partial file and promotes it once complete.
func (c *pdfCache) commit(resp *http.Response, entry cacheEntry, appendPartial bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendPartial {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(entry.partial, flags, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, io.LimitReader(resp.Body, maxPDFBodyBytes)); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(entry.partial, entry.pdf); err != nil {
		return err
	}

	meta := cachedPDFMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		StoredAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(entry.pdf); err == nil {
		meta.Size = info.Size()
	}
	return storeCacheMeta(entry.meta, meta)
}

func (c *pdfCache) entryFor(key string) cacheEntry {
	base := filepath.Join(c.dir, key)
	return cacheEntry{
		pdf:     base + ".pdf",
		meta:    base + ".json",
		partial: base + ".part",
	}
}

// cacheKey prefers the PMC id in the URL and falls back to a URL hash.
func cacheKey(pdfURL string) string {
	if m := pmcIDRegexp.FindStringSubmatch(pdfURL); len(m) > 1 {
		return "PMC" + m[1]
	}
	sum := sha1.Sum([]byte(pdfURL))
	return hex.EncodeToString(sum[:])
}

func loadCacheMeta(path string) (cachedPDFMeta, error) {
	var meta cachedPDFMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

func storeCacheMeta(path string, meta cachedPDFMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
