// Package ask implements the question half of the retrieval pipeline:
// embed → KNN search → context assembly → answer generation.
package ask

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/domain"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

// Service answers questions over the indexed résumé corpus.
type Service struct {
	embedder  Embedder
	index     Index
	generator Generator
	topK      int
	logger    *zap.Logger
}

// New creates a question-answering service.
func New(embedder Embedder, index Index, generator Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      DefaultTopK,
		logger:    logger,
	}
}

// WithTopK sets how many chunks are retrieved per question.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Ask answers one question over the current index contents. An empty
// index and an empty search result are expected outcomes, reported via
// the answer status rather than as errors. The empty-index check comes
// first so no embedding call is spent when there is nothing to search.
func (s *Service) Ask(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("question is empty: %w", domain.ErrConfiguration)
	}

	count, err := s.index.Count(ctx)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("count index entries: %w", err)
	}
	if count == 0 {
		return domain.Answer{Status: domain.StatusEmptyIndex}, nil
	}

	embedded, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.index.Query(ctx, embedded.Embedding, s.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 {
		return domain.Answer{Status: domain.StatusNoRelevantContext}, nil
	}

	contextText, sources := assembleContext(hits)

	text, err := s.generator.Generate(ctx, question, contextText)
	if err != nil {
		return domain.Answer{}, err
	}

	s.logger.Debug("question answered",
		zap.Int("retrieved", len(hits)),
		zap.Int("top_k", s.topK),
	)

	return domain.Answer{
		Status:  domain.StatusAnswered,
		Text:    text,
		Sources: sources,
	}, nil
}

// assembleContext joins retrieved chunks into a labeled prompt block and
// the provenance list shown alongside the answer. Chunks from the same
// document share one candidate label; the ordinal counts distinct
// documents in retrieval order.
func assembleContext(hits []domain.Retrieved) (string, []domain.Source) {
	labels := make(map[string]string, len(hits))
	sources := make([]domain.Source, 0, len(hits))
	var b strings.Builder

	for i, hit := range hits {
		label, ok := labels[hit.Chunk.Filename]
		if !ok {
			label = domain.CandidateLabel(hit.Chunk.Text, len(labels)+1)
			labels[hit.Chunk.Filename] = label
		}

		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s (%s)]\n%s", label, hit.Chunk.Filename, hit.Chunk.Text)

		sources = append(sources, domain.Source{
			Filename: hit.Chunk.Filename,
			Label:    label,
			Text:     hit.Chunk.Text,
		})
	}

	return b.String(), sources
}
