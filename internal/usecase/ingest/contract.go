package ingest

import (
	"context"

	"github.com/talentsift/talentsift/internal/domain"
)

// Extractor turns an uploaded PDF into plain text.
type Extractor interface {
	Text(filename string, data []byte) (string, error)
}

// Chunker splits extracted text into embeddable segments.
type Chunker interface {
	Split(text string) []string
}

// Embedder vectorizes chunk texts, batched per API call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index is the write side of the vector index.
type Index interface {
	Upsert(ctx context.Context, entries []domain.Entry) error
	Clear(ctx context.Context) error
}
