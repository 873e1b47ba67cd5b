// Package ingest implements the ingestion half of the retrieval pipeline:
// extract → chunk → embed → index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/domain"
	"github.com/talentsift/talentsift/internal/metrics"
)

// Policy decides what ingesting a new batch does to prior index entries.
type Policy string

const (
	// PolicyReplace clears prior entries before indexing the new batch.
	PolicyReplace Policy = "replace"
	// PolicyAccumulate appends the new batch to existing entries.
	PolicyAccumulate Policy = "accumulate"
)

// Service runs ingestion batches against the vector index.
type Service struct {
	extractor    Extractor
	chunker      Chunker
	embedder     Embedder
	index        Index
	policy       Policy
	maxBatchSize int
	logger       *zap.Logger

	// mu serializes the clear-then-rebuild sequence so one user's clear
	// cannot race another's upsert on the shared index.
	mu sync.Mutex
}

// New creates an ingestion service with the replace policy.
func New(extractor Extractor, chunker Chunker, embedder Embedder, index Index, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		index:        index,
		policy:       PolicyReplace,
		maxBatchSize: 64,
		logger:       logger,
	}
}

// WithPolicy sets the re-ingestion policy.
func (s *Service) WithPolicy(p Policy) *Service {
	if p == PolicyReplace || p == PolicyAccumulate {
		s.policy = p
	}
	return s
}

// WithMaxBatchSize caps how many chunks go into one embedding API call.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Ingest runs one ingestion batch. Extraction failures are per-document
// and non-fatal; embedding and index errors abort the run. Under the
// replace policy the clear happens only after every document has been
// extracted, chunked, and embedded, so an upstream failure leaves the
// prior index contents untouched. If the upsert fails after the clear,
// the returned summary carries IndexCleared so the caller can tell the
// user the index is now empty.
func (s *Service) Ingest(ctx context.Context, uploads []domain.Upload) (domain.IngestSummary, error) {
	summary := domain.IngestSummary{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", summary.RunID))

	chunks := s.extractAndChunk(ctx, uploads, &summary, log)
	if len(chunks) == 0 {
		log.Info("ingestion produced no chunks",
			zap.Int("documents_failed", summary.DocumentsFailed),
		)
		return summary, nil
	}

	entries, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return summary, fmt.Errorf("embed batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == PolicyReplace {
		if err := s.index.Clear(ctx); err != nil {
			return summary, fmt.Errorf("clear index: %w", err)
		}
		summary.IndexCleared = true
	}

	if err := s.index.Upsert(ctx, entries); err != nil {
		if summary.IndexCleared {
			return summary, fmt.Errorf("index was cleared but re-indexing failed, the index is now empty: %w", err)
		}
		return summary, fmt.Errorf("upsert entries: %w", err)
	}

	summary.ChunksIndexed = len(entries)
	metrics.IngestChunksTotal.Add(float64(len(entries)))

	log.Info("ingestion complete",
		zap.Int("documents_indexed", summary.DocumentsIndexed),
		zap.Int("documents_failed", summary.DocumentsFailed),
		zap.Int("chunks_indexed", summary.ChunksIndexed),
		zap.String("policy", string(s.policy)),
	)
	return summary, nil
}

// extractAndChunk extracts every upload, skipping documents that fail,
// and returns the chunks of the surviving documents.
func (s *Service) extractAndChunk(
	ctx context.Context, uploads []domain.Upload, summary *domain.IngestSummary, log *zap.Logger,
) []domain.Chunk {
	var chunks []domain.Chunk

	for _, u := range uploads {
		if ctx.Err() != nil {
			return chunks
		}

		text, err := s.extractor.Text(u.Filename, u.Data)
		if err != nil {
			summary.DocumentsFailed++
			summary.Failures = append(summary.Failures, extractionFailure(u.Filename, err))
			metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
			log.Warn("document skipped", zap.String("filename", u.Filename), zap.Error(err))
			continue
		}

		summary.DocumentsIndexed++
		metrics.IngestDocumentsTotal.WithLabelValues("indexed").Inc()

		for i, segment := range s.chunker.Split(text) {
			chunks = append(chunks, domain.Chunk{
				ID:       domain.ChunkID(u.Filename, i),
				Filename: u.Filename,
				Position: i,
				Text:     segment,
			})
		}
	}

	return chunks
}

// embedChunks vectorizes chunks in bounded batches and pairs each chunk
// with its vector.
func (s *Service) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Entry, error) {
	entries := make([]domain.Entry, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.maxBatchSize {
		end := start + s.maxBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf(
				"embedder returned %d vectors for %d chunks: %w",
				len(res.Embeddings), len(batch), domain.ErrEmbeddingProviderError,
			)
		}

		for i, c := range batch {
			entries = append(entries, domain.Entry{Chunk: c, Vector: res.Embeddings[i]})
		}
	}

	return entries, nil
}

func extractionFailure(filename string, err error) domain.ExtractionFailure {
	var xerr *domain.ExtractionError
	if errors.As(err, &xerr) {
		return domain.ExtractionFailure{Filename: xerr.Filename, Reason: xerr.Err.Error()}
	}
	return domain.ExtractionFailure{Filename: filename, Reason: err.Error()}
}
