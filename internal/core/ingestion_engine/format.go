package ingestion_engine

import (
	"net/http"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/askflow/internal/core"
)

const pdfContentType = "application/pdf"

// ValidatePDF accepts only files named *.pdf (any case) whose bytes start like a PDF.
func ValidatePDF(filename string, data []byte) error {
	if filename == "" {
		return &core.UnsupportedFormatError{FileName: filename, Reason: "missing filename"}
	}
	if docconv.MimeTypeByExtension(strings.ToLower(filepath.Base(filename))) != pdfContentType {
		return &core.UnsupportedFormatError{FileName: filename, Reason: "only PDF files are supported"}
	}
	if len(data) == 0 {
		return &core.UnsupportedFormatError{FileName: filename, Reason: "empty file"}
	}
	if sniffed := http.DetectContentType(data); sniffed != pdfContentType {
		return &core.UnsupportedFormatError{FileName: filename, Reason: "content is " + sniffed + ", not a PDF"}
	}
	return nil
}
