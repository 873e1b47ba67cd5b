// Package chunkindex provides the vector index adapters for résumé chunks:
// a durable Redis FT.SEARCH backend and an ephemeral in-memory backend.
package chunkindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/talentsift/talentsift/internal/db"
	"github.com/talentsift/talentsift/internal/domain"
)

// store is the consumer interface over db.Store used by the Redis index.
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig carries FT.CREATE HNSW build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Redis is a durable chunk index over Redis 8+ vector search. Entries
// survive process restarts; re-ingestion semantics are decided by the
// ingestion policy, not by the backend.
type Redis struct {
	store     store
	keyPrefix string
	name      string
	vectorDim int
	hnsw      HNSWConfig
}

// NewRedis creates a Redis-backed chunk index.
func NewRedis(s store, keyPrefix, name string, vectorDim int) *Redis {
	return &Redis{
		store:     s,
		keyPrefix: keyPrefix,
		name:      name,
		vectorDim: vectorDim,
	}
}

// WithHNSW switches the vector field from FLAT to HNSW with the given
// build parameters.
func (r *Redis) WithHNSW(cfg HNSWConfig) *Redis {
	r.hnsw = cfg
	return r
}

func (r *Redis) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.name)
}

func (r *Redis) entryPrefix() string {
	return fmt.Sprintf("%s%s:", r.keyPrefix, r.name)
}

func (r *Redis) entryKey(chunkID string) string {
	return r.entryPrefix() + chunkID
}

// EnsureReady creates the FT index if it does not exist yet.
func (r *Redis) EnsureReady(ctx context.Context) error {
	algo := db.VectorFlat
	if r.hnsw.M > 0 || r.hnsw.EFConstruct > 0 {
		algo = db.VectorHNSW
	}

	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.entryPrefix()},
		Fields: []db.IndexField{
			{Name: fieldFilename, Type: db.IndexFieldTag},
			{Name: fieldPosition, Type: db.IndexFieldNumeric},
			{Name: fieldContent, Type: db.IndexFieldText},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        algo,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Ping checks backend availability.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("index ping: %w", err)
	}
	return nil
}

// Upsert writes entries as hashes, idempotent by chunk id: a second write
// under the same id overwrites the previous fields.
func (r *Redis) Upsert(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		items[i] = db.HashSetItem{
			Key:    r.entryKey(e.Chunk.ID),
			Fields: entryToFields(e),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert entries: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Query returns up to k entries ordered by similarity descending; equal
// scores order by chunk id ascending so results are reproducible.
func (r *Redis) Query(ctx context.Context, vector []float32, k int) ([]domain.Retrieved, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldFilename, fieldPosition, fieldContent, "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", err, domain.ErrIndexUnavailable)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	prefix := r.entryPrefix()
	out := make([]domain.Retrieved, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		chunk, err := fieldsToChunk(e.Key, prefix, e.Fields)
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", e.Key, err)
		}
		out = append(out, domain.Retrieved{Chunk: chunk, Score: e.Score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})

	return out, nil
}

// Clear removes every entry under the index prefix. Clearing an already
// empty index is a no-op.
func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, r.entryPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan entries: %w: %w", err, domain.ErrIndexUnavailable)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete entries: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Count returns the number of indexed entries.
func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count entries: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return n, nil
}

// --- hash mapping ---

const (
	fieldFilename = "filename"
	fieldPosition = "position"
	fieldContent  = "content"
	fieldVector   = "vector"
)

func entryToFields(e domain.Entry) map[string]string {
	return map[string]string{
		fieldFilename: e.Chunk.Filename,
		fieldPosition: strconv.Itoa(e.Chunk.Position),
		fieldContent:  e.Chunk.Text,
		fieldVector:   vectorBlob(e.Vector),
	}
}

func fieldsToChunk(key, prefix string, fields map[string]string) (domain.Chunk, error) {
	id := key
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		id = key[len(prefix):]
	}

	position, err := strconv.Atoi(fields[fieldPosition])
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("position field: %w", err)
	}

	return domain.Chunk{
		ID:       id,
		Filename: fields[fieldFilename],
		Position: position,
		Text:     fields[fieldContent],
	}, nil
}

// vectorBlob encodes a float32 vector as the little-endian byte string
// expected by Redis VECTOR hash fields.
func vectorBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
