package app

import (
	"context"
	"log"
	"strings"

	"docuchat/internal/ai"
	"docuchat/internal/chunker"
	"docuchat/internal/model"
	"docuchat/internal/pkg/extract"
	"docuchat/internal/repository"
)

// Extractor turns a named byte blob into plain text.
type Extractor func(filename string, data []byte) (string, error)

// IngestFile is one uploaded file.
type IngestFile struct {
	Name string
	Data []byte
}

// FileSummary reports the outcome for one file. Chunks is zero both for
// empty extractions and for files that failed; Error distinguishes the two.
type FileSummary struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// IngestResult aggregates a whole upload batch.
type IngestResult struct {
	Inserted int           `json:"inserted_total"`
	Files    []FileSummary `json:"files"`
}

type IngestService struct {
	resourceRepo *repository.ResourceRepository
	embedder     ai.Embedder
	extractor    Extractor
	chunkSize    int
	chunkOverlap int
}

func NewIngestService(
	resourceRepo *repository.ResourceRepository,
	embedder ai.Embedder,
	extractor Extractor,
	chunkSize, chunkOverlap int,
) *IngestService {
	if extractor == nil {
		extractor = extract.Text
	}
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunker.DefaultOverlap
	}
	return &IngestService{
		resourceRepo: resourceRepo,
		embedder:     embedder,
		extractor:    extractor,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Ingest drives each file through extract, chunk, embed and persist. Files
// are isolated from each other: one file failing its embedding or its commit
// does not abort the rest of the batch. A file's resource row and chunk rows
// commit as one unit, so a cancelled or failed file leaves nothing behind.
func (s *IngestService) Ingest(ctx context.Context, files []IngestFile) (*IngestResult, error) {
	if len(files) == 0 {
		return nil, ErrInvalidInput
	}

	result := &IngestResult{Files: make([]FileSummary, 0, len(files))}
	for _, f := range files {
		filename := f.Name
		if filename == "" {
			filename = "unknown"
		}
		summary := s.ingestOne(ctx, filename, f.Data)
		result.Inserted += summary.Chunks
		result.Files = append(result.Files, summary)
	}
	return result, nil
}

func (s *IngestService) ingestOne(ctx context.Context, filename string, data []byte) FileSummary {
	summary := FileSummary{Filename: filename}

	text, err := s.extractor(filename, data)
	if err != nil {
		log.Printf("ingest: extract %q failed: %v", filename, err)
		summary.Error = err.Error()
		return summary
	}
	text = strings.TrimSpace(text)
	if text == "" {
		// No extractable text is not an error for the batch.
		return summary
	}

	spans := chunker.Split(text, s.chunkSize, s.chunkOverlap)
	if len(spans) == 0 {
		return summary
	}

	vectors, err := s.embedder.EmbedBatch(ctx, spans)
	if err != nil {
		log.Printf("ingest: embed %q failed: %v", filename, err)
		summary.Error = err.Error()
		return summary
	}
	if len(vectors) != len(spans) {
		// The gateway already enforces this; kept as a last check before
		// any store write.
		summary.Error = ai.ErrEmbeddingMismatch.Error()
		return summary
	}

	resource := &model.Resource{Filename: filename, Content: text}
	chunks := make([]model.Chunk, len(spans))
	for i := range spans {
		chunks[i] = model.Chunk{Content: spans[i]}
		chunks[i].SetEmbedding(vectors[i])
	}
	if err := s.resourceRepo.CreateWithChunks(resource, chunks); err != nil {
		log.Printf("ingest: persist %q failed: %v", filename, err)
		summary.Error = err.Error()
		return summary
	}

	summary.Chunks = len(chunks)
	return summary
}
