package domain

import "fmt"

// Upload is one file received from the presentation layer, before extraction.
type Upload struct {
	Filename string
	Data     []byte
}

// Document is an uploaded résumé with its extracted text.
type Document struct {
	Filename string
	Text     string
}

// Chunk is a contiguous slice of a document's extracted text.
// The chunk id is always filename plus position; derived candidate names
// are presentation labels and never participate in identity.
type Chunk struct {
	ID       string
	Filename string
	Position int
	Text     string
}

// ChunkID builds the index id for a chunk of a document.
func ChunkID(filename string, position int) string {
	return fmt.Sprintf("%s#%d", filename, position)
}

// Entry is a chunk paired with its embedding, as stored in the index.
type Entry struct {
	Chunk  Chunk
	Vector []float32
}

// Retrieved is a single similarity-search hit.
type Retrieved struct {
	Chunk Chunk
	Score float64
}

// ExtractionFailure records one document that could not be extracted.
type ExtractionFailure struct {
	Filename string
	Reason   string
}

// IngestSummary reports the outcome of one ingestion run.
type IngestSummary struct {
	RunID             string
	DocumentsIndexed  int
	DocumentsFailed   int
	ChunksIndexed     int
	Failures          []ExtractionFailure
	// IndexCleared is set when the replace policy removed prior entries.
	// If an error is returned alongside it, the index is empty and the
	// caller must say so instead of silently losing data.
	IndexCleared bool
}

// Source is one retrieved chunk shown to the user as provenance.
type Source struct {
	Filename string
	Label    string
	Text     string
}

// QueryStatus tags the outcome of a question so callers can branch on
// expected conditions without inspecting error types.
type QueryStatus string

const (
	// StatusAnswered means an answer was generated from retrieved context.
	StatusAnswered QueryStatus = "answered"
	// StatusEmptyIndex means no résumés have been ingested yet.
	StatusEmptyIndex QueryStatus = "empty_index"
	// StatusNoRelevantContext means the index holds entries but the search
	// returned none.
	StatusNoRelevantContext QueryStatus = "no_relevant_context"
)

// Answer is the result of one question.
type Answer struct {
	Status  QueryStatus
	Text    string
	Sources []Source
}
