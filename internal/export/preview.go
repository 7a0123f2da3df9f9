// Package export renders a tenant's help-center layout as standalone HTML
// and as PDF.
package export

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"strings"
	"time"

	"helpcenter/api/internal/theme"
)

var (
	// ErrPDFDependencyMissing indicates no Chrome binary is available.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)

//go:embed templates/*.html
var templateFS embed.FS

var previewTemplate = template.Must(template.New("preview.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string { return t.Format("Jan 2, 2006") },
}).ParseFS(templateFS, "templates/preview.html"))

// Preview is everything the help-center front page needs.
type Preview struct {
	CompanyName       string
	HeaderText        string
	SearchPlaceholder string
	Header            theme.HeaderStyle
	Globals           theme.GlobalStyles
	Sections          []theme.RenderedSection
	GeneratedAt       time.Time
}

// PreviewOf captures the visible layout of s.
func PreviewOf(s *theme.Session, companyName string, now time.Time) Preview {
	b := s.Branding()
	return Preview{
		CompanyName:       companyName,
		HeaderText:        b.HeaderText,
		SearchPlaceholder: b.SearchPlaceholder,
		Header:            s.Style().Header,
		Globals:           s.Globals(),
		Sections:          s.Render(),
		GeneratedAt:       now,
	}
}

func RenderHTML(p Preview) (string, error) {
	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Result is a rendered file.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	out := b.String()
	if len(out) > 50 {
		out = out[:50]
	}
	if out == "" {
		out = "help-center"
	}
	return out
}
