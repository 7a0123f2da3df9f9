package app

import (
	"context"
	"errors"
	"net/http"

	"helpcenter/api/internal/export"
	"helpcenter/api/internal/gitrepo"
	"helpcenter/api/internal/rbac"
	"helpcenter/api/internal/theme"
)

// tenantGateway stores theme documents in Postgres, one per tenant.
type tenantGateway struct {
	store    dataStore
	author   string
	revision int64
}

func (g *tenantGateway) Load(ctx context.Context, tenantID string) (theme.Config, bool, error) {
	return g.store.LoadThemeConfig(ctx, tenantID)
}

func (g *tenantGateway) Save(ctx context.Context, tenantID string, cfg theme.Config) error {
	rev, err := g.store.SaveThemeConfig(ctx, tenantID, cfg, g.author)
	if err != nil {
		return err
	}
	g.revision = rev
	return nil
}

// tenantContent is the section content keyspace of one tenant.
type tenantContent struct {
	store    dataStore
	tenantID string
}

func (c tenantContent) Get(ctx context.Context, sectionID string) (theme.Content, bool, error) {
	return c.store.GetSectionContent(ctx, c.tenantID, sectionID)
}

func (c tenantContent) Put(ctx context.Context, sectionID string, content theme.Content) error {
	return c.store.PutSectionContent(ctx, c.tenantID, sectionID, content)
}

func (s *Service) themeOptions(tenantID string) []theme.SessionOption {
	return []theme.SessionOption{
		theme.WithContentStore(tenantContent{store: s.store, tenantID: tenantID}),
		theme.WithModelOptions(theme.WithLogger(s.logger.With("tenant_id", tenantID))),
	}
}

// loadTheme opens the saved theme of a tenant, or the default theme when
// the tenant never saved one.
func (s *Service) loadTheme(ctx context.Context, tenantID string) (*theme.Session, error) {
	opts := s.themeOptions(tenantID)
	b, ok, err := s.store.LoadBranding(ctx, tenantID)
	if err != nil {
		return nil, &theme.PersistenceError{Op: "load branding", Err: err}
	}
	if ok {
		opts = append(opts, theme.WithBranding(b))
	}
	return theme.Load(ctx, &tenantGateway{store: s.store}, s.registry, tenantID, s.cfg.DefaultTheme, opts...)
}

// ThemeView is a tenant's theme as the console renders it.
type ThemeView struct {
	Config   theme.Config              `json:"config"`
	Branding theme.Branding            `json:"branding"`
	Style    theme.ThemeStyle          `json:"style"`
	Sections []theme.PositionedSection `json:"sections"`
	Rendered []theme.RenderedSection   `json:"rendered"`
}

func viewOf(ts *theme.Session) ThemeView {
	return ThemeView{
		Config:   ts.Config(),
		Branding: ts.Branding(),
		Style:    ts.Style(),
		Sections: ts.Model().Snapshot(),
		Rendered: ts.Render(),
	}
}

func (s *Service) Catalog() []theme.Variant {
	return s.registry.Variants()
}

func (s *Service) Templates(themeID string) ([]theme.SectionTemplate, error) {
	if _, ok := s.registry.Variant(themeID); !ok {
		return nil, domainError(http.StatusNotFound, "THEME_NOT_FOUND", "Unknown theme", map[string]any{"themeId": themeID})
	}
	return s.registry.TemplatesFor(themeID), nil
}

func (s *Service) CurrentTheme(ctx context.Context, sess Session) (ThemeView, error) {
	ts, err := s.loadTheme(ctx, sess.TenantID)
	if err != nil {
		return ThemeView{}, err
	}
	return viewOf(ts), nil
}

func (s *Service) ThemeHistory(ctx context.Context, sess Session, limit int) ([]gitrepo.Revision, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	revs, err := s.history.History(sess.TenantID, limit)
	if errors.Is(err, gitrepo.ErrNoHistory) {
		return []gitrepo.Revision{}, nil
	}
	return revs, err
}

// RevisionView is one stored revision and what it changed relative to the
// current theme.
type RevisionView struct {
	Revision gitrepo.Revision `json:"revision"`
	Snapshot gitrepo.Snapshot `json:"snapshot"`
	Changes  []gitrepo.Change `json:"changes"`
}

func (s *Service) ThemeRevision(ctx context.Context, sess Session, hash string) (RevisionView, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return RevisionView{}, err
	}
	snap, rev, err := s.history.At(sess.TenantID, hash)
	if err != nil {
		return RevisionView{}, err
	}
	current, err := s.loadTheme(ctx, sess.TenantID)
	if err != nil {
		return RevisionView{}, err
	}
	changes := gitrepo.Diff(snap, gitrepo.Snapshot{Config: current.Config(), Branding: current.Branding()})
	if changes == nil {
		changes = []gitrepo.Change{}
	}
	return RevisionView{Revision: rev, Snapshot: snap, Changes: changes}, nil
}

func (s *Service) companyName(ctx context.Context, tenantID string) string {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		s.logger.Warn("tenant lookup for preview failed", "tenant_id", tenantID, "err", err)
		return "Help Center"
	}
	return tenant.Name
}

// ThemePreview renders the saved theme as HTML or, when pdf is set, PDF.
func (s *Service) ThemePreview(ctx context.Context, sess Session, pdf bool) (*export.Result, error) {
	ts, err := s.loadTheme(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	return s.renderPreview(ctx, sess, ts, pdf)
}

func (s *Service) renderPreview(ctx context.Context, sess Session, ts *theme.Session, pdf bool) (*export.Result, error) {
	p := export.PreviewOf(ts, s.companyName(ctx, sess.TenantID), s.now())
	if !pdf {
		return s.exporter.HTML(p)
	}
	res, err := s.exporter.PDF(ctx, p)
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, errExportDisabled
	}
	return res, err
}
