package ask

import (
	"context"

	"github.com/talentsift/talentsift/internal/domain"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

type mockIndex struct {
	queryFn func(ctx context.Context, vector []float32, k int) ([]domain.Retrieved, error)
	countFn func(ctx context.Context) (int, error)

	queriedK int
}

func (m *mockIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.Retrieved, error) {
	m.queriedK = k
	if m.queryFn != nil {
		return m.queryFn(ctx, vector, k)
	}
	return nil, nil
}

func (m *mockIndex) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockGenerator struct {
	generateFn func(ctx context.Context, question, contextText string) (string, error)

	lastQuestion string
	lastContext  string
}

func (m *mockGenerator) Generate(ctx context.Context, question, contextText string) (string, error) {
	m.lastQuestion = question
	m.lastContext = contextText
	if m.generateFn != nil {
		return m.generateFn(ctx, question, contextText)
	}
	return "generated answer", nil
}
