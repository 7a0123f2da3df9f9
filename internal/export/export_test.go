package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"helpcenter/api/internal/theme"
)

func previewSession(t *testing.T) *theme.Session {
	t.Helper()
	s, err := theme.NewSession(theme.DefaultRegistry(), "ecommerce")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	sections := s.Model().Sections()
	if _, err := s.Model().ToggleVisibility(sections[1].ID); err != nil {
		t.Fatalf("ToggleVisibility() error = %v", err)
	}
	if _, err := s.Model().UpdateContent(sections[0].ID, "Orders <script>", "Track & manage"); err != nil {
		t.Fatalf("UpdateContent() error = %v", err)
	}
	return s
}

func TestRenderHTMLShowsVisibleSections(t *testing.T) {
	s := previewSession(t)
	hidden := s.Model().Sections()[1]
	p := PreviewOf(s, "Acme", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	html, err := RenderHTML(p)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	for _, want := range []string{
		"How can we help you?",
		"Orders &lt;script&gt;",
		"Track &amp; manage",
		"Mar 1, 2024",
		"--primary: #4f46e5",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered html missing %q", want)
		}
	}
	if strings.Contains(html, `data-section="`+hidden.ID+`"`) {
		t.Fatalf("hidden section %s was rendered", hidden.ID)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("section title was not escaped")
	}
}

func TestRenderHTMLWithNoSections(t *testing.T) {
	html, err := RenderHTML(Preview{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if !strings.Contains(html, "No sections are visible.") {
		t.Fatal("expected empty state")
	}
}

type fakePDF struct {
	html  string
	title string
	err   error
}

func (f *fakePDF) RenderPDF(_ context.Context, html, title string) (*Result, error) {
	f.html, f.title = html, title
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Data: []byte("%PDF"), Filename: sanitizeFilename(title) + ".pdf", MimeType: "application/pdf"}, nil
}

func TestServicePDFUsesRenderedHTML(t *testing.T) {
	renderer := &fakePDF{}
	svc := NewService(renderer)
	p := PreviewOf(previewSession(t), "Acme Store", time.Now())

	res, err := svc.PDF(context.Background(), p)
	if err != nil {
		t.Fatalf("PDF() error = %v", err)
	}
	if res.Filename != "Acme-Store-help-center.pdf" {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
	if !strings.Contains(renderer.html, "<html") {
		t.Fatal("renderer did not receive the preview html")
	}

	renderer.err = ErrPDFDependencyMissing
	if _, err := svc.PDF(context.Background(), p); !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestServiceHTML(t *testing.T) {
	res, err := NewService(&fakePDF{}).HTML(Preview{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if res.MimeType != "text/html; charset=utf-8" || res.Filename != "Acme-help-center.html" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Acme Store":       "Acme-Store",
		"../../etc/passwd": "etcpasswd",
		"":                 "help-center",
		"***":              "help-center",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDataURLEncodesSpaces(t *testing.T) {
	got := dataURL("<p>a b</p>")
	if strings.Contains(got, "+") || !strings.Contains(got, "a%20b") {
		t.Fatalf("unexpected data url %q", got)
	}
}
