package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingMismatch means the provider returned a different number of
	// vectors than texts sent. Non-retriable for the affected input; the
	// gateway never pads or truncates to hide it.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrDimensionMismatch means a returned vector does not have the
	// corpus-wide embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder is the embedding collaborator as seen by the pipeline.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingGateway wraps the OpenAI-compatible client with the pipeline's
// postconditions: one vector per input, in order, all with dimension Dim.
// Requests are sliced into provider-sized batches.
type EmbeddingGateway struct {
	client    *OpenAICompatibleClient
	cfg       EmbeddingConfig
	dim       int
	batchSize int
}

func NewEmbeddingGateway(client *OpenAICompatibleClient, cfg EmbeddingConfig, dim, batchSize int) *EmbeddingGateway {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &EmbeddingGateway{
		client:    client,
		cfg:       cfg,
		dim:       dim,
		batchSize: batchSize,
	}
}

// Dim returns the corpus-wide embedding dimension.
func (g *EmbeddingGateway) Dim() int {
	return g.dim
}

func (g *EmbeddingGateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.client.Embed(ctx, g.cfg, text)
	if err != nil {
		return nil, err
	}
	if err := g.checkDim(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		out, err := g.client.EmbedBatch(ctx, g.cfg, batch)
		if err != nil {
			return nil, err
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrEmbeddingMismatch, len(batch), len(out))
		}
		vectors = append(vectors, out...)
	}

	for _, vec := range vectors {
		if err := g.checkDim(vec); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (g *EmbeddingGateway) checkDim(vec []float32) error {
	if g.dim > 0 && len(vec) != g.dim {
		return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, g.dim, len(vec))
	}
	return nil
}
