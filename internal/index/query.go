package index

import (
	"context"
	"fmt"

	"codeseek/internal/embedder"
	"codeseek/internal/store"
)

// DefaultLimit is the number of results returned when no limit is given.
const DefaultLimit = 5

// SearchResult is one ranked hit.
type SearchResult struct {
	Score     float64 `json:"score"`
	FilePath  string  `json:"file_path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Code      string  `json:"code_chunk"`
}

// Searcher answers natural-language queries against the collection.
type Searcher struct {
	store       store.Gateway
	embedders   *embedder.Registry
	collection  string
	instruction string
	limit       int
}

// NewSearcher creates a searcher. instruction is prepended to every query
// before embedding; limit is used when Query is called with limit <= 0.
func NewSearcher(g store.Gateway, embedders *embedder.Registry, collection, instruction string, limit int) *Searcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Searcher{
		store:       g,
		embedders:   embedders,
		collection:  collection,
		instruction: instruction,
		limit:       limit,
	}
}

// Query returns up to limit chunks ranked by descending similarity to text.
// An empty result is not an error.
func (q *Searcher) Query(ctx context.Context, text string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = q.limit
	}

	info, err := q.store.DescribeCollection(ctx, q.collection)
	if err != nil {
		return nil, fmt.Errorf("describe collection %s: %w", q.collection, err)
	}
	if !info.Found {
		return nil, fmt.Errorf("%w: %s (index the project first)", store.ErrCollectionNotFound, q.collection)
	}

	p, err := q.embedders.Provider()
	if err != nil {
		return nil, err
	}
	vector, err := p.Embed(ctx, q.instruction+text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != info.VectorSize {
		return nil, fmt.Errorf("%w: model %s produces %d, collection %s holds %d",
			store.ErrDimensionMismatch, p.Model(), len(vector), q.collection, info.VectorSize)
	}

	hits, err := q.store.Search(ctx, q.collection, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			Score:     h.Score,
			FilePath:  h.Payload.FilePath,
			StartLine: h.Payload.StartLine,
			EndLine:   h.Payload.EndLine,
			Code:      h.Payload.Text,
		})
	}
	return results, nil
}
