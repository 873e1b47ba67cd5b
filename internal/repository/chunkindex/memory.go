package chunkindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/talentsift/talentsift/internal/domain"
)

// Memory is an in-process chunk index using brute-force cosine similarity.
// It is ephemeral: entries die with the process, so every run starts with
// an empty index and résumés must be re-ingested.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	nextSeq int
}

type memEntry struct {
	entry domain.Entry
	seq   int // insertion order, kept across updates of the same id
}

// NewMemory creates an empty in-memory chunk index.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memEntry)}
}

// EnsureReady is a no-op: the map is ready from construction.
func (m *Memory) EnsureReady(_ context.Context) error { return nil }

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Upsert inserts or replaces entries by chunk id. An update keeps the
// entry's original insertion position so ranking ties stay stable.
func (m *Memory) Upsert(_ context.Context, entries []domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if existing, ok := m.entries[e.Chunk.ID]; ok {
			existing.entry = e
			continue
		}
		m.entries[e.Chunk.ID] = &memEntry{entry: e, seq: m.nextSeq}
		m.nextSeq++
	}
	return nil
}

// Query returns up to k entries by cosine similarity descending. Equal
// scores order by insertion sequence, which also yields ascending chunk
// ids for a single ingestion run.
func (m *Memory) Query(_ context.Context, vector []float32, k int) ([]domain.Retrieved, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		entry *memEntry
		score float64
	}

	candidates := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		candidates = append(candidates, scored{entry: e, score: cosineSimilarity(vector, e.entry.Vector)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.seq < candidates[j].entry.seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	out := make([]domain.Retrieved, 0, k)
	for _, c := range candidates[:k] {
		out = append(out, domain.Retrieved{Chunk: c.entry.entry.Chunk, Score: c.score})
	}
	return out, nil
}

// Clear removes all entries. Clearing an empty index is a no-op.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*memEntry)
	m.nextSeq = 0
	return nil
}

// Count returns the number of indexed entries.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is zero or the dimensions differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
