package app

import (
	"math"
	"sort"

	"docuchat/internal/model"
)

// RankedChunk is one chunk with its distance to a query vector. Smaller
// score means more relevant.
type RankedChunk struct {
	Chunk model.Chunk
	Score float32
}

// Ranker orders stored chunks by distance to a query embedding. The linear
// scan below is the reference implementation; an approximate index can be
// substituted without touching the retrieval contract.
type Ranker interface {
	Rank(query []float32, chunks []model.Chunk, k int) []RankedChunk
}

// LinearRanker brute-forces cosine distance over the whole corpus.
type LinearRanker struct{}

func (LinearRanker) Rank(query []float32, chunks []model.Chunk, k int) []RankedChunk {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	if k > len(chunks) {
		k = len(chunks)
	}

	ranked := make([]RankedChunk, len(chunks))
	for i := range chunks {
		ranked[i] = RankedChunk{
			Chunk: chunks[i],
			Score: cosineDistance(query, chunks[i].EmbeddingVector()),
		}
	}
	// Ascending by distance; ties break on chunk id so the ordering is
	// stable for a given store snapshot.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})
	return ranked[:k]
}

// cosineDistance is 1 - cosine similarity. Mismatched or zero-norm vectors
// rank last.
func cosineDistance(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 2
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
