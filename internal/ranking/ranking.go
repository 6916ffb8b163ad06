// Package ranking orders PubMed results by embedding similarity to the query.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/csheth/pubmedscout/internal/llm"
	"github.com/csheth/pubmedscout/internal/pubmed"
)

// Embedder turns texts into vectors, one per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// batchSize keeps embedding requests well under provider input limits.
const batchSize = 64

// Rank scores every paper by the dot product between the query embedding and
// the embedding of its title and abstract, then stable-sorts by score
// descending. Papers are copied; the input slice is not modified.
func Rank(ctx context.Context, embedder Embedder, query string, papers []pubmed.Paper) ([]pubmed.Paper, error) {
	if len(papers) == 0 {
		return []pubmed.Paper{}, nil
	}
	if embedder == nil {
		return nil, errors.New("no embedder configured")
	}

	queryVecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(queryVecs))
	}
	queryVec := queryVecs[0]

	ranked := make([]pubmed.Paper, len(papers))
	copy(ranked, papers)

	for start := 0; start < len(ranked); start += batchSize {
		end := min(start+batchSize, len(ranked))
		texts := make([]string, 0, end-start)
		for _, p := range ranked[start:end] {
			texts = append(texts, llm.RankingText(p.Title, p.Abstract))
		}
		vecs, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed papers: %w", err)
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embed papers: got %d vectors for %d papers", len(vecs), len(texts))
		}
		for i, vec := range vecs {
			ranked[start+i].RelevanceScore = Dot(queryVec, vec)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	return ranked, nil
}

// Dot is the dot product over the shared prefix of a and b. Provider
// embeddings are unit length, so this equals cosine similarity.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
