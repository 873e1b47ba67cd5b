package ingest

import (
	"context"
	"strings"

	"github.com/talentsift/talentsift/internal/domain"
)

type mockExtractor struct {
	textFn func(filename string, data []byte) (string, error)
}

func (m *mockExtractor) Text(filename string, data []byte) (string, error) {
	return m.textFn(filename, data)
}

type mockChunker struct {
	splitFn func(text string) []string
}

func (m *mockChunker) Split(text string) []string {
	if m.splitFn != nil {
		return m.splitFn(text)
	}
	return strings.Fields(text)
}

type mockEmbedder struct {
	batchEmbedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	calls        [][]string
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls = append(m.calls, texts)
	if m.batchEmbedFn != nil {
		return m.batchEmbedFn(ctx, texts)
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockIndex struct {
	upsertFn func(ctx context.Context, entries []domain.Entry) error
	clearFn  func(ctx context.Context) error

	upserted [][]domain.Entry
	cleared  int
}

func (m *mockIndex) Upsert(ctx context.Context, entries []domain.Entry) error {
	m.upserted = append(m.upserted, entries)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entries)
	}
	return nil
}

func (m *mockIndex) Clear(ctx context.Context) error {
	m.cleared++
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}
