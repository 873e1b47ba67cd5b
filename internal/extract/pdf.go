// Package extract turns uploaded résumé files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/domain"
)

// Extractor extracts UTF-8 text from PDF byte streams.
type Extractor struct {
	logger *zap.Logger
}

// New creates an extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Text extracts the text of every page in order and concatenates it.
// A page that fails to yield text contributes an empty string; only a byte
// stream that is not a readable PDF at all fails the document, with a
// domain.ExtractionError naming the file.
func (e *Extractor) Text(filename string, data []byte) (string, error) {
	reader, err := newReader(data)
	if err != nil {
		return "", domain.NewExtractionError(filename, err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			e.logger.Warn("page extraction failed",
				zap.String("filename", filename),
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}
		b.WriteString(text)
	}

	return b.String(), nil
}

// newReader opens a PDF reader over in-memory bytes. The pdf package panics
// on some malformed inputs, so the panic is converted to an error here.
func newReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

// pageText extracts one page, recovering from parser panics so a single
// corrupt page cannot discard the rest of the document.
func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", n, rec)
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	return text, nil
}
