package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"helpcenter/api/internal/analytics"
	"helpcenter/api/internal/auth"
	"helpcenter/api/internal/authpw"
	"helpcenter/api/internal/blob"
	"helpcenter/api/internal/config"
	"helpcenter/api/internal/email"
	"helpcenter/api/internal/export"
	"helpcenter/api/internal/gitrepo"
	"helpcenter/api/internal/rbac"
	"helpcenter/api/internal/search"
	"helpcenter/api/internal/session"
	"helpcenter/api/internal/store"
	"helpcenter/api/internal/theme"
	"helpcenter/api/internal/util"
)

// Session is the authenticated caller of a request.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	TenantID     string
	UserName     string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	Ping(ctx context.Context) error

	CreateTenantWithAdmin(context.Context, store.Tenant, store.User) error
	GetTenant(context.Context, string) (store.Tenant, error)
	UpdateTenantProfile(context.Context, store.Tenant) (store.Tenant, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	InsertUser(context.Context, store.User) error
	ListTeam(context.Context, string) ([]store.User, error)
	UpdateUserRole(context.Context, string, string, string) error
	DeleteUser(context.Context, string, string) error

	LoadThemeConfig(context.Context, string) (theme.Config, bool, error)
	SaveThemeConfig(context.Context, string, theme.Config, string) (int64, error)
	SaveBranding(context.Context, string, theme.Branding) error
	LoadBranding(context.Context, string) (theme.Branding, bool, error)
	GetSectionContent(context.Context, string, string) (theme.Content, bool, error)
	PutSectionContent(context.Context, string, string, theme.Content) error

	ListPages(context.Context, string) ([]store.Page, error)
	GetPage(context.Context, string, string) (store.Page, error)
	InsertPage(context.Context, store.Page) (store.Page, error)
	UpdatePage(context.Context, store.Page) (store.Page, error)
	DeletePage(context.Context, string, string) error

	ListArticles(context.Context, string, string) ([]store.Article, error)
	GetArticle(context.Context, string, string) (store.Article, error)
	InsertArticle(context.Context, store.Article) (store.Article, error)
	UpdateArticle(context.Context, store.Article) (store.Article, error)
	IncrementArticleViews(context.Context, string, string) (int, error)
	DeleteArticle(context.Context, string, string) error

	InsertMessage(context.Context, store.Message) (store.Message, error)
	ListMessages(context.Context, string, store.MessageFilter) ([]store.Message, error)
	GetMessage(context.Context, string, string) (store.Message, error)
	UpdateMessageStatus(context.Context, string, string, string) (store.Message, error)
	MarkMessageRead(context.Context, string, string, bool) (store.Message, error)
	AppendMessageNote(context.Context, string, string, store.MessageNote) (store.Message, error)
	DeleteMessage(context.Context, string, string) error

	InsertInvite(context.Context, store.Invite) (store.Invite, error)
	ListInvites(context.Context, string) ([]store.Invite, error)
	GetInviteByTokenHash(context.Context, string) (store.Invite, error)
	UpdateInviteStatus(context.Context, string, string, string) error

	GetDomainSettings(context.Context, string) (store.DomainSettings, error)
	SaveDomainSettings(context.Context, store.DomainSettings) (store.DomainSettings, error)
	InsertUpload(context.Context, store.Upload) error

	InsertPageView(context.Context, analytics.PageView) error
	InsertSearchEvent(context.Context, analytics.SearchEvent) error
	AnalyticsCounts(context.Context, string, analytics.Range) (analytics.Counts, error)
}

// SessionStore keeps refresh tokens, the access-token denylist and
// editing-session checkpoints.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, data session.TokenData, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (session.TokenData, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	SaveEdit(ctx context.Context, cp session.EditCheckpoint, ttl time.Duration) error
	LoadEdit(ctx context.Context, id string) (session.EditCheckpoint, error)
	DeleteEdit(ctx context.Context, id string) error
}

type historyService interface {
	Record(tenantID string, snap gitrepo.Snapshot, author, message string) (gitrepo.Revision, bool, error)
	History(tenantID string, limit int) ([]gitrepo.Revision, error)
	At(tenantID, hash string) (gitrepo.Snapshot, gitrepo.Revision, error)
}

type searchService interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexArticle(a search.ArticleRecord)
	IndexPage(p search.PageRecord)
	DeleteArticle(id string)
	DeletePage(id string)
}

type imageStore interface {
	PutImage(ctx context.Context, tenantID, folder, filename, contentType string, size int64, r io.Reader) (blob.Object, error)
}

type mailer interface {
	IsConfigured() bool
	SendInvitation(to string, inv email.Invitation) error
}

type previewExporter interface {
	HTML(p export.Preview) (*export.Result, error)
	PDF(ctx context.Context, p export.Preview) (*export.Result, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  SessionStore
	history   historyService
	search    searchService
	images    imageStore
	mail      mailer
	exporter  previewExporter
	registry  *theme.Registry
	signer    *auth.Signer
	passwords *authpw.Service
	logger    *slog.Logger
	now       func() time.Time

	editMu    sync.Mutex
	editLocks map[string]*sync.Mutex
}

type Option func(*Service)

func WithSearch(s *search.Service) Option {
	return func(svc *Service) {
		if s != nil {
			svc.search = s
		}
	}
}

func WithImages(b *blob.Store) Option {
	return func(svc *Service) {
		if b != nil {
			svc.images = b
		}
	}
}

func WithMailer(m *email.Service) Option {
	return func(svc *Service) {
		if m != nil {
			svc.mail = m
		}
	}
}

func WithExporter(e *export.Service) Option {
	return func(svc *Service) {
		if e != nil {
			svc.exporter = e
		}
	}
}

func WithRegistry(r *theme.Registry) Option {
	return func(svc *Service) {
		if r != nil {
			svc.registry = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

func New(cfg config.Config, data *store.PostgresStore, sessions SessionStore, history *gitrepo.Service, opts ...Option) *Service {
	svc := newService(cfg, data, sessions, history)
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func newService(cfg config.Config, data dataStore, sessions SessionStore, history historyService) *Service {
	return &Service{
		cfg:       cfg,
		store:     data,
		sessions:  sessions,
		history:   history,
		exporter:  export.NewService(export.ChromePDF{}),
		registry:  theme.DefaultRegistry(),
		signer:    auth.NewSigner(cfg.JWTSecret, cfg.AccessTTL),
		passwords: authpw.NewService(data),
		logger:    slog.Default(),
		now:       time.Now,
		editLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// authorize fails with 403 unless the caller's role grants p.
func (s *Service) authorize(sess Session, p rbac.Permission) error {
	if !rbac.Can(sess.Role, p) {
		return errForbidden
	}
	return nil
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, store.Tenant, error) {
	tenant, user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, store.Tenant{}, err
	}
	s.logger.Info("tenant created", "tenant_id", tenant.ID, "user_id", user.ID)
	sess, err := s.issueSession(ctx, user)
	return sess, tenant, err
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) AcceptInvite(ctx context.Context, req authpw.AcceptInviteRequest) (Session, error) {
	user, err := s.passwords.AcceptInvite(ctx, req)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("invite accepted", "tenant_id", user.TenantID, "user_id", user.ID, "role", user.Role)
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token. The old token is revoked whether or
// not the new session can be issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	data, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, data.UserID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if user.TenantID != data.TenantID {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	role := rbac.Normalize(user.Role)
	token, claims, err := s.signer.Issue(auth.Claims{
		Sub:      user.ID,
		TenantID: user.TenantID,
		Name:     user.DisplayName,
		Role:     string(role),
		JTI:      util.NewID("jti"),
	})
	if err != nil {
		return Session{}, err
	}

	refresh, err := auth.NewOpaqueToken()
	if err != nil {
		return Session{}, err
	}
	err = s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), session.TokenData{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		DisplayName: user.DisplayName,
		Role:        string(role),
		CreatedAt:   now.UTC(),
	}, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		TenantID:     user.TenantID,
		UserName:     user.DisplayName,
		Role:         role,
		JTI:          claims.JTI,
		ExpiresAt:    time.Unix(claims.Exp, 0),
	}, nil
}

// SessionFromToken verifies an access token and reloads the member so
// role changes and removals take effect before the token expires.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if user.TenantID != claims.TenantID {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		UserName:  user.DisplayName,
		Role:      rbac.Normalize(user.Role),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	if strings.TrimSpace(refreshToken) != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}
	return nil
}
