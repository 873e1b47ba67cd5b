package chi

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type homeData struct {
	ChunkCount int
	HasIndex   bool
}

// home handles GET /: the upload-and-ask page.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	count, err := s.counter.Count(r.Context())
	if err != nil {
		log.Warn("index count for home page failed", zap.Error(err))
		count = 0
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, homeData{ChunkCount: count, HasIndex: count > 0}); err != nil {
		log.Error("render home page", zap.Error(err))
	}
}
