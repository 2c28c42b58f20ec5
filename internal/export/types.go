// Package export renders documents to standalone HTML and PDF.
package export

import (
	"errors"
	"time"

	"beskar/editor/internal/doc"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format. An empty value means HTML.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Document is what gets exported.
type Document struct {
	Title     string
	Author    string
	Version   int
	UpdatedAt time.Time
	Root      *doc.Node
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat is returned for formats other than html and pdf.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
