package export

import (
	"context"
	"fmt"
	"html/template"
)

// PDFPrinter turns a rendered page into PDF bytes.
type PDFPrinter func(ctx context.Context, page string) ([]byte, error)

// Service provides document export functionality
type Service struct {
	printPDF PDFPrinter
}

// NewService creates an export service printing PDFs with headless Chrome.
func NewService() *Service {
	return &Service{printPDF: printPDF}
}

// NewServiceWithPrinter replaces the PDF printer.
func NewServiceWithPrinter(p PDFPrinter) *Service {
	return &Service{printPDF: p}
}

// Export renders d in the requested format.
func (s *Service) Export(ctx context.Context, d Document, format Format) (*Result, error) {
	content, err := RenderHTML(d.Root)
	if err != nil {
		return nil, fmt.Errorf("render content: %w", err)
	}
	page, err := RenderDocumentHTML(TemplateData{
		Title:       d.Title,
		ContentHTML: template.HTML(content),
		Author:      d.Author,
		Version:     d.Version,
		UpdatedAt:   d.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(page),
			Filename: sanitizeFilename(d.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		data, err := s.printPDF(ctx, page)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     data,
			Filename: sanitizeFilename(d.Title) + ".pdf",
			MimeType: "application/pdf",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
