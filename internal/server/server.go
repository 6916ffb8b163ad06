// Package server is the HTTP backend for the terminal client: PubMed search
// ranked by embedding similarity, and question answering over one paper.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/csheth/pubmedscout/internal/llm"
	"github.com/csheth/pubmedscout/internal/pubmed"
	"github.com/csheth/pubmedscout/internal/store"
)

const (
	defaultMaxResults = 50
	maxMaxResults     = 200
	searchTimeout     = 2 * time.Minute
	chatTimeout       = 3 * time.Minute
	fetchTimeout      = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

// PaperSource is the subset of the E-utilities client the server needs.
type PaperSource interface {
	Search(ctx context.Context, term string, max int) ([]string, error)
	FetchDetails(ctx context.Context, pmids []string) ([]pubmed.Paper, error)
	FetchContent(ctx context.Context, pmid string) (*pubmed.Content, error)
}

// ContentStore caches fetched paper content.
type ContentStore interface {
	Get(ctx context.Context, pmid string) (store.Entry, error)
	Put(ctx context.Context, c pubmed.Content) error
}

// Options wires the server's collaborators.
type Options struct {
	Papers            PaperSource
	LLM               llm.Client
	Store             ContentStore
	Logger            zerolog.Logger
	DefaultMaxResults int
}

// Server serves /api/search, /api/chat and /health.
type Server struct {
	papers     PaperSource
	llm        llm.Client
	store      ContentStore
	log        zerolog.Logger
	maxResults int
	fetches    singleflight.Group
}

// New builds a Server. Papers, LLM and Store are required.
func New(opts Options) *Server {
	maxResults := opts.DefaultMaxResults
	if maxResults <= 0 || maxResults > maxMaxResults {
		maxResults = defaultMaxResults
	}
	return &Server{
		papers:     opts.Papers,
		llm:        opts.LLM,
		store:      opts.Store,
		log:        opts.Logger,
		maxResults: maxResults,
	}
}

// Handler returns the routed handler with logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      chatTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("llm", s.llm.Name()).Msg("api server starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		log := s.log.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(ww, r.WithContext(log.WithContext(r.Context())))
		log.Info().
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
