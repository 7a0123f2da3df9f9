package export

import (
	"context"
	"fmt"
)

type Service struct {
	pdf PDFRenderer
}

func NewService(pdf PDFRenderer) *Service {
	return &Service{pdf: pdf}
}

func (s *Service) HTML(p Preview) (*Result, error) {
	html, err := RenderHTML(p)
	if err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return &Result{
		Data:     []byte(html),
		Filename: sanitizeFilename(p.CompanyName+" help center") + ".html",
		MimeType: "text/html; charset=utf-8",
	}, nil
}

func (s *Service) PDF(ctx context.Context, p Preview) (*Result, error) {
	html, err := RenderHTML(p)
	if err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return s.pdf.RenderPDF(ctx, html, p.CompanyName+" help center")
}
