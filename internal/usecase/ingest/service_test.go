package ingest

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/domain"
)

func newTestService(ext Extractor, idx Index) (*Service, *mockEmbedder) {
	emb := &mockEmbedder{}
	svc := New(ext, &mockChunker{splitFn: func(text string) []string {
		return []string{text}
	}}, emb, idx, zap.NewNop())
	return svc, emb
}

func TestIngestPartialFailure(t *testing.T) {
	ext := &mockExtractor{textFn: func(filename string, _ []byte) (string, error) {
		if filename == "corrupt.pdf" {
			return "", domain.NewExtractionError(filename, errors.New("no pdf header"))
		}
		return "text of " + filename, nil
	}}
	idx := &mockIndex{}
	svc, _ := newTestService(ext, idx)

	uploads := []domain.Upload{
		{Filename: "alice.pdf", Data: []byte("a")},
		{Filename: "corrupt.pdf", Data: []byte("b")},
		{Filename: "bob.pdf", Data: []byte("c")},
	}

	summary, err := svc.Ingest(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if summary.DocumentsIndexed != 2 {
		t.Errorf("DocumentsIndexed = %d, want 2", summary.DocumentsIndexed)
	}
	if summary.DocumentsFailed != 1 {
		t.Errorf("DocumentsFailed = %d, want 1", summary.DocumentsFailed)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Filename != "corrupt.pdf" {
		t.Errorf("Failures = %+v, want single entry for corrupt.pdf", summary.Failures)
	}
	if summary.ChunksIndexed != 2 {
		t.Errorf("ChunksIndexed = %d, want 2", summary.ChunksIndexed)
	}
	if summary.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestIngestReplaceClearsBeforeUpsert(t *testing.T) {
	ext := &mockExtractor{textFn: func(filename string, _ []byte) (string, error) {
		return "text", nil
	}}

	order := []string{}
	idx := &mockIndex{
		clearFn: func(context.Context) error {
			order = append(order, "clear")
			return nil
		},
		upsertFn: func(context.Context, []domain.Entry) error {
			order = append(order, "upsert")
			return nil
		},
	}
	svc, _ := newTestService(ext, idx)

	summary, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "a.pdf"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(order) != 2 || order[0] != "clear" || order[1] != "upsert" {
		t.Errorf("call order = %v, want [clear upsert]", order)
	}
	if !summary.IndexCleared {
		t.Error("IndexCleared = false, want true under replace policy")
	}
}

func TestIngestAccumulateSkipsClear(t *testing.T) {
	ext := &mockExtractor{textFn: func(string, []byte) (string, error) { return "text", nil }}
	idx := &mockIndex{}
	svc, _ := newTestService(ext, idx)
	svc.WithPolicy(PolicyAccumulate)

	summary, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "a.pdf"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if idx.cleared != 0 {
		t.Errorf("Clear called %d times, want 0", idx.cleared)
	}
	if summary.IndexCleared {
		t.Error("IndexCleared = true, want false under accumulate policy")
	}
}

func TestIngestEmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	ext := &mockExtractor{textFn: func(string, []byte) (string, error) { return "text", nil }}
	idx := &mockIndex{}
	svc, emb := newTestService(ext, idx)
	emb.batchEmbedFn = func(context.Context, []string) (domain.BatchEmbeddingResult, error) {
		return domain.BatchEmbeddingResult{}, domain.ErrEmbeddingProviderError
	}

	summary, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "a.pdf"}})
	if err == nil {
		t.Fatal("Ingest() error = nil, want embedding error")
	}
	if idx.cleared != 0 {
		t.Errorf("Clear called %d times, want 0 after embedding failure", idx.cleared)
	}
	if len(idx.upserted) != 0 {
		t.Errorf("Upsert called %d times, want 0 after embedding failure", len(idx.upserted))
	}
	if summary.IndexCleared {
		t.Error("IndexCleared = true, want false")
	}
}

func TestIngestUpsertFailureAfterClearReportsClearedIndex(t *testing.T) {
	ext := &mockExtractor{textFn: func(string, []byte) (string, error) { return "text", nil }}
	idx := &mockIndex{
		upsertFn: func(context.Context, []domain.Entry) error {
			return errors.New("connection reset")
		},
	}
	svc, _ := newTestService(ext, idx)

	summary, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "a.pdf"}})
	if err == nil {
		t.Fatal("Ingest() error = nil, want upsert error")
	}
	if !summary.IndexCleared {
		t.Error("IndexCleared = false, want true when upsert fails after clear")
	}
}

func TestIngestBatchesEmbeddingCalls(t *testing.T) {
	ext := &mockExtractor{textFn: func(string, []byte) (string, error) { return "text", nil }}
	idx := &mockIndex{}

	emb := &mockEmbedder{}
	svc := New(ext, &mockChunker{splitFn: func(string) []string {
		return []string{"c0", "c1", "c2", "c3", "c4"}
	}}, emb, idx, zap.NewNop())
	svc.WithMaxBatchSize(2)

	summary, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "a.pdf"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(emb.calls) != 3 {
		t.Fatalf("BatchEmbed called %d times, want 3", len(emb.calls))
	}
	if len(emb.calls[0]) != 2 || len(emb.calls[2]) != 1 {
		t.Errorf("batch sizes = %d,%d,%d, want 2,2,1",
			len(emb.calls[0]), len(emb.calls[1]), len(emb.calls[2]))
	}
	if summary.ChunksIndexed != 5 {
		t.Errorf("ChunksIndexed = %d, want 5", summary.ChunksIndexed)
	}
}

func TestIngestChunkIdentity(t *testing.T) {
	ext := &mockExtractor{textFn: func(string, []byte) (string, error) { return "text", nil }}
	idx := &mockIndex{}

	svc := New(ext, &mockChunker{splitFn: func(string) []string {
		return []string{"first", "second"}
	}}, &mockEmbedder{}, idx, zap.NewNop())

	if _, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "cv.pdf"}}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(idx.upserted) != 1 {
		t.Fatalf("Upsert called %d times, want 1", len(idx.upserted))
	}

	entries := idx.upserted[0]
	if len(entries) != 2 {
		t.Fatalf("upserted %d entries, want 2", len(entries))
	}
	if entries[0].Chunk.ID != "cv.pdf#0" || entries[1].Chunk.ID != "cv.pdf#1" {
		t.Errorf("chunk ids = %q, %q, want cv.pdf#0, cv.pdf#1",
			entries[0].Chunk.ID, entries[1].Chunk.ID)
	}
	if entries[1].Chunk.Position != 1 || entries[1].Chunk.Filename != "cv.pdf" {
		t.Errorf("chunk metadata = %+v", entries[1].Chunk)
	}
}

func TestIngestNoChunksSkipsIndex(t *testing.T) {
	ext := &mockExtractor{textFn: func(filename string, _ []byte) (string, error) {
		return "", domain.NewExtractionError(filename, errors.New("unreadable"))
	}}
	idx := &mockIndex{}
	svc, emb := newTestService(ext, idx)

	summary, err := svc.Ingest(context.Background(), []domain.Upload{{Filename: "bad.pdf"}})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if summary.DocumentsFailed != 1 || summary.DocumentsIndexed != 0 {
		t.Errorf("summary = %+v, want 1 failed, 0 indexed", summary)
	}
	if len(emb.calls) != 0 || idx.cleared != 0 || len(idx.upserted) != 0 {
		t.Error("pipeline touched embedder or index for an empty chunk set")
	}
}
