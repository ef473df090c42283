package app

import (
	"context"
	"fmt"
	"strings"

	"docuchat/internal/ai"
	"docuchat/internal/model"
	"docuchat/internal/repository"
)

const (
	defaultTopK = 8

	// contextPolicy is the fixed system instruction paired with assembled
	// context. It is a policy constant, not user-configurable.
	contextPolicy = "Answer primarily from the context below. " +
		"If the context is not complete enough, combine the clues it contains into a best-effort answer. " +
		"Only if nothing in the context is usable, say: \"Sorry, I don't know.\""

	// NoContextAnswer is returned verbatim when retrieval yields no hits;
	// the generation collaborator is never invoked in that case.
	NoContextAnswer = "Sorry, I don't know."

	chunkSeparator = "\n\n---\n\n"
)

// Hit is one ranked chunk with provenance. Score is a cosine distance:
// smaller is more relevant.
type Hit struct {
	ResourceID string  `json:"resource_id"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type RetrievalService struct {
	chunkRepo    *repository.ChunkRepository
	resourceRepo *repository.ResourceRepository
	embedder     ai.Embedder
	ranker       Ranker
	topK         int
}

func NewRetrievalService(
	chunkRepo *repository.ChunkRepository,
	resourceRepo *repository.ResourceRepository,
	embedder ai.Embedder,
	ranker Ranker,
	topK int,
) *RetrievalService {
	if ranker == nil {
		ranker = LinearRanker{}
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &RetrievalService{
		chunkRepo:    chunkRepo,
		resourceRepo: resourceRepo,
		embedder:     embedder,
		ranker:       ranker,
		topK:         topK,
	}
}

// Retrieve embeds the query and returns the k nearest chunks joined with
// their resource's filename. An empty corpus is a legitimate zero-hit
// outcome, not an error; the caller decides what to do with no context.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if k <= 0 {
		k = s.topK
	}

	chunks, err := s.chunkRepo.ListAll()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	filenames, err := s.filenameIndex()
	if err != nil {
		return nil, err
	}

	ranked := s.ranker.Rank(queryVec, chunks, k)
	hits := make([]Hit, len(ranked))
	for i, rc := range ranked {
		hits[i] = Hit{
			ResourceID: rc.Chunk.ResourceID,
			Filename:   filenames[rc.Chunk.ResourceID],
			Content:    rc.Chunk.Content,
			Score:      rc.Score,
		}
	}
	return hits, nil
}

func (s *RetrievalService) filenameIndex() (map[string]string, error) {
	resources, err := s.resourceRepo.ListAll()
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(resources))
	for _, r := range resources {
		index[r.ID] = r.Filename
	}
	return index, nil
}

// AssembleContext renders hits as labeled blocks for the generation prompt.
// Empty hits yield an empty block; callers must short-circuit to
// NoContextAnswer instead of prompting with nothing.
func AssembleContext(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}
	blocks := make([]string, len(hits))
	for i, h := range hits {
		filename := h.Filename
		if filename == "" {
			filename = "unknown"
		}
		blocks[i] = fmt.Sprintf("# Chunk %d [score=%.4f] [file=%s]\n%s", i+1, h.Score, filename, h.Content)
	}
	return strings.Join(blocks, chunkSeparator)
}

// ContextPolicy returns the fixed system instruction for context-grounded
// answers.
func ContextPolicy() string {
	return contextPolicy
}

// HitsToSources converts hits to the typed provenance stored with an
// assistant turn.
func HitsToSources(hits []Hit) []model.Source {
	if len(hits) == 0 {
		return nil
	}
	sources := make([]model.Source, len(hits))
	for i, h := range hits {
		sources[i] = model.Source{
			ResourceID: h.ResourceID,
			Filename:   h.Filename,
			Score:      h.Score,
		}
	}
	return sources
}
