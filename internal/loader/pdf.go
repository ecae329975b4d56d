package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// PDFLoader extracts text from PDF files one page at a time.
type PDFLoader struct {
	log *zap.Logger
}

// NewPDFLoader creates a PDF loader.
func NewPDFLoader(log *zap.Logger) *PDFLoader {
	return &PDFLoader{log: log}
}

// Load reads the PDF at path and returns the text of each page in page
// order. A page that fails extraction is returned as an empty string and
// logged; the rest of the document is still processed.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", path, err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("page count %s: %w", path, err)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := l.extractPage(reader, i)
		if err != nil {
			l.log.Warn("page extraction failed",
				zap.String("file", path), zap.Int("page", i), zap.Error(err))
			text = ""
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

func (l *PDFLoader) extractPage(reader *model.PdfReader, n int) (string, error) {
	page, err := reader.GetPage(n)
	if err != nil {
		return "", err
	}
	ex, err := extractor.New(page)
	if err != nil {
		return "", err
	}
	return ex.ExtractText()
}
