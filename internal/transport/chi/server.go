// Package chi implements the HTTP surface: the upload/ask web page and
// the JSON API over a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/domain"
	"github.com/talentsift/talentsift/internal/extract"
)

// uploadField is the multipart form field carrying résumé files.
const uploadField = "resumes"

// Ingestor runs an ingestion batch.
type Ingestor interface {
	Ingest(ctx context.Context, uploads []domain.Upload) (domain.IngestSummary, error)
}

// Asker answers a question over the indexed corpus.
type Asker interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
}

// Counter reports how many chunks the index currently holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// ReadinessCheck is one named dependency probe for /healthz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the résumé analyzer HTTP API.
type Server struct {
	ingestor       Ingestor
	asker          Asker
	counter        Counter
	checks         []ReadinessCheck
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates the HTTP server.
func NewServer(ingestor Ingestor, asker Asker, counter Counter, logger *zap.Logger) *Server {
	s := &Server{
		ingestor:       ingestor,
		asker:          asker,
		counter:        counter,
		maxUploadBytes: 32 << 20,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, "bad_request"),
		sentinelHandler(domain.ErrExtraction, http.StatusBadRequest, "extraction_failed"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, "generation_failed"),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"),
	}
	return s
}

// WithMaxUploadBytes caps the total size of one upload request.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// WithReadinessChecks sets the dependency probes reported by /healthz.
func (s *Server) WithReadinessChecks(checks ...ReadinessCheck) *Server {
	s.checks = checks
	return s
}

// Routes mounts all handlers on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.home)
	r.Post("/resumes", s.uploadResumes)
	r.Post("/ask", s.ask)
	r.Get("/healthz", s.healthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

type ingestResponse struct {
	RunID            string              `json:"run_id"`
	DocumentsIndexed int                 `json:"documents_indexed"`
	DocumentsFailed  int                 `json:"documents_failed"`
	ChunksIndexed    int                 `json:"chunks_indexed"`
	Failures         []extractionFailure `json:"failures,omitempty"`
}

type extractionFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// uploadResumes handles POST /resumes: multipart PDF or ZIP uploads.
func (s *Server) uploadResumes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			fmt.Sprintf("no files in form field %q", uploadField))
		return
	}

	uploads := make([]domain.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Open upload: "+err.Error())
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Read upload: "+err.Error())
			return
		}
		uploads = append(uploads, domain.Upload{Filename: fh.Filename, Data: data})
	}

	uploads, err := extract.ExpandUploads(uploads)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "no PDF files in upload")
		return
	}

	summary, err := s.ingestor.Ingest(r.Context(), uploads)
	if err != nil {
		if summary.IndexCleared {
			s.logger.Error("index cleared but re-indexing failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"code":          "index_unavailable",
				"message":       "the index was cleared but re-indexing failed, re-upload to restore it",
				"index_cleared": true,
			})
			return
		}
		s.handleDomainError(w, err)
		return
	}

	resp := ingestResponse{
		RunID:            summary.RunID,
		DocumentsIndexed: summary.DocumentsIndexed,
		DocumentsFailed:  summary.DocumentsFailed,
		ChunksIndexed:    summary.ChunksIndexed,
	}
	for _, f := range summary.Failures {
		resp.Failures = append(resp.Failures, extractionFailure{Filename: f.Filename, Reason: f.Reason})
	}

	writeJSON(w, http.StatusOK, resp)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Status  string       `json:"status"`
	Answer  string       `json:"answer,omitempty"`
	Message string       `json:"message,omitempty"`
	Sources []sourceItem `json:"sources,omitempty"`
}

type sourceItem struct {
	Filename string `json:"filename"`
	Label    string `json:"label"`
	Text     string `json:"text"`
}

// ask handles POST /ask.
func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "Question is required")
		return
	}

	answer, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := askResponse{Status: string(answer.Status)}
	switch answer.Status {
	case domain.StatusEmptyIndex:
		resp.Message = "No résumés have been uploaded yet."
	case domain.StatusNoRelevantContext:
		resp.Message = "No relevant information found in the uploaded résumés."
	default:
		resp.Answer = answer.Text
		for _, src := range answer.Sources {
			resp.Sources = append(resp.Sources, sourceItem{
				Filename: src.Filename,
				Label:    src.Label,
				Text:     src.Text,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// healthz handles GET /healthz, running every readiness check.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))

	for _, c := range s.checks {
		if err := c.Check(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.String("check", c.Name), zap.Error(err))
			checks[c.Name] = "unhealthy"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "healthy"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrConfiguration,
		domain.ErrExtraction,
		domain.ErrEmbeddingProviderError,
		domain.ErrGeneration,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
