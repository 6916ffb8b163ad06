package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/csheth/pubmedscout/internal/pubmed"
	"github.com/csheth/pubmedscout/internal/ranking"
	"github.com/csheth/pubmedscout/internal/store"
)

const paperUnavailable = "Paper not found or couldn't be fetched"

type errorResponse struct {
	Detail string `json:"detail"`
}

type chatRequest struct {
	PMID    string `json:"pmid"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()
	log := zerolog.Ctx(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "query parameter is required"})
		return
	}
	maxResults := clampInt(r.URL.Query().Get("max_results"), s.maxResults, maxMaxResults)

	pmids, err := s.papers.Search(ctx, query, maxResults)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("esearch failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("PubMed API error: %v", err)})
		return
	}
	papers, err := s.papers.FetchDetails(ctx, pmids)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("efetch failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("PubMed API error: %v", err)})
		return
	}
	ranked, err := ranking.Rank(ctx, s.llm, query, papers)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("ranking failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	log.Debug().Str("query", query).Int("results", len(ranked)).Msg("search complete")
	writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()
	log := zerolog.Ctx(ctx)

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "invalid request body"})
		return
	}
	req.PMID = strings.TrimSpace(req.PMID)
	req.Message = strings.TrimSpace(req.Message)
	if req.PMID == "" || req.Message == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "pmid and message are required"})
		return
	}

	content, err := s.paperContent(ctx, req.PMID)
	if err != nil {
		log.Warn().Err(err).Str("pmid", req.PMID).Msg("paper content unavailable")
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: paperUnavailable})
		return
	}

	answer, err := s.llm.Answer(ctx, content.Title, req.Message, content.FullText)
	if err != nil {
		log.Error().Err(err).Str("pmid", req.PMID).Msg("answer failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

// paperContent serves from the store, fetching at most once per PMID across
// concurrent requests.
func (s *Server) paperContent(ctx context.Context, pmid string) (pubmed.Content, error) {
	entry, err := s.store.Get(ctx, pmid)
	if err == nil {
		return entry.Content, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("pmid", pmid).Msg("store lookup failed")
	}

	v, err, _ := s.fetches.Do(pmid, func() (any, error) {
		// Callers share this fetch, so one disconnecting must not cancel it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		content, err := s.papers.FetchContent(ctx, pmid)
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, *content); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("pmid", pmid).Msg("store write failed")
		}
		return *content, nil
	})
	if err != nil {
		return pubmed.Content{}, err
	}
	return v.(pubmed.Content), nil
}

func clampInt(raw string, fallback, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
