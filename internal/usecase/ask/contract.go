package ask

import (
	"context"

	"github.com/talentsift/talentsift/internal/domain"
)

// Embedder vectorizes the question text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index is the read side of the vector index.
type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]domain.Retrieved, error)
	Count(ctx context.Context) (int, error)
}

// Generator synthesizes an answer from the question and assembled context.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (string, error)
}
