// Package extract turns uploaded files into plain text for chunking.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/codmer/pulsedoc/internal/domain"
)

// Format identifies a supported document family.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatDOCX Format = "docx"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extensionFormats = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatText,
	".markdown": FormatText,
	".csv":      FormatText,
	".tsv":      FormatText,
	".json":     FormatText,
	".htm":      FormatHTML,
	".html":     FormatHTML,
	".xhtml":    FormatHTML,
	".pdf":      FormatPDF,
	".xlsx":     FormatXLSX,
	".xlsm":     FormatXLSX,
	".docx":     FormatDOCX,
}

var mimeFormats = map[string]Format{
	"text/plain":            FormatText,
	"text/markdown":         FormatText,
	"text/csv":              FormatText,
	"application/json":      FormatText,
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	mimePDF:                 FormatPDF,
	mimeXLSX:                FormatXLSX,
	mimeDOCX:                FormatDOCX,
}

// Extractor dispatches on file extension first, then on the declared MIME
// type, then on sniffed content.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// ExtractText returns the document's text. Unsupported or unreadable input
// yields an error wrapping domain.ErrExtractionFailed.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	format, ok := DetectFormat(data, fileName, mimeType)
	if !ok {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailed, domain.ErrUnsupportedFileType.Message,
			fmt.Errorf("file %q with type %q", fileName, mimeType))
	}

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatXLSX:
		text, err = extractXLSX(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	case FormatHTML:
		text = stripHTML(string(data))
	default:
		text, err = extractPlain(data)
	}
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailed, domain.ErrExtractionFailed.Message,
			fmt.Errorf("%s: %w", format, err))
	}
	return text, nil
}

// DetectFormat reports the format to extract data as.
func DetectFormat(data []byte, fileName, mimeType string) (Format, bool) {
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(fileName))]; ok {
		return f, true
	}
	if f, ok := mimeFormats[baseMIME(mimeType)]; ok {
		return f, true
	}

	sniffed := baseMIME(http.DetectContentType(data))
	if f, ok := mimeFormats[sniffed]; ok {
		return f, true
	}
	if strings.HasPrefix(sniffed, "text/") {
		return FormatText, true
	}
	return "", false
}

func baseMIME(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
