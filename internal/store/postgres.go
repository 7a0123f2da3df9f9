package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"helpcenter/api/internal/theme"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateTenantWithAdmin creates a tenant and its first administrator in one
// transaction.
func (s *PostgresStore) CreateTenantWithAdmin(ctx context.Context, tenant Tenant, admin User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signup tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tenants (id, name) VALUES ($1, $2)
	`, tenant.ID, tenant.Name); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, display_name, email, password_hash, role)
		VALUES ($1, $2, $3, LOWER($4), $5, 'admin')
	`, admin.ID, tenant.ID, admin.DisplayName, admin.Email, admin.PasswordHash); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit signup: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, tenantID string) (Tenant, error) {
	var t Tenant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, logo_url, industry, website, address, created_at, updated_at
		FROM tenants WHERE id=$1
	`, tenantID).Scan(&t.ID, &t.Name, &t.LogoURL, &t.Industry, &t.Website, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Tenant{}, err
	}
	return t, nil
}

func (s *PostgresStore) UpdateTenantProfile(ctx context.Context, t Tenant) (Tenant, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE tenants
		SET name=$2, logo_url=$3, industry=$4, website=$5, address=$6, updated_at=NOW()
		WHERE id=$1
		RETURNING id, name, logo_url, industry, website, address, created_at, updated_at
	`, t.ID, t.Name, t.LogoURL, t.Industry, t.Website, t.Address).Scan(
		&t.ID, &t.Name, &t.LogoURL, &t.Industry, &t.Website, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Tenant{}, err
	}
	return t, nil
}

const userColumns = `id, tenant_id, display_name, email, password_hash, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=LOWER($1)`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) InsertUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, display_name, email, password_hash, role)
		VALUES ($1, $2, $3, LOWER($4), $5, $6)
	`, u.ID, u.TenantID, u.DisplayName, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTeam(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE tenant_id=$1 ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateUserRole(ctx context.Context, tenantID, userID, role string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET role=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2
	`, tenantID, userID, role)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return expectAffected(res, "update user role")
}

func (s *PostgresStore) DeleteUser(ctx context.Context, tenantID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE tenant_id=$1 AND id=$2`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, "delete user")
}

// LoadThemeConfig returns the stored document of a tenant; false when the
// tenant never saved one.
func (s *PostgresStore) LoadThemeConfig(ctx context.Context, tenantID string) (theme.Config, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM theme_configs WHERE tenant_id=$1`, tenantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return theme.Config{}, false, nil
	}
	if err != nil {
		return theme.Config{}, false, fmt.Errorf("load theme config: %w", err)
	}
	var cfg theme.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return theme.Config{}, false, fmt.Errorf("decode theme config: %w", err)
	}
	if cfg.Sections == nil {
		cfg.Sections = map[string]theme.SectionState{}
	}
	return cfg, true, nil
}

// SaveThemeConfig upserts the document and bumps its revision. The last
// write wins.
func (s *PostgresStore) SaveThemeConfig(ctx context.Context, tenantID string, cfg theme.Config, updatedBy string) (int64, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("encode theme config: %w", err)
	}
	var revision int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO theme_configs (tenant_id, theme_id, document, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE
		SET theme_id=EXCLUDED.theme_id,
			document=EXCLUDED.document,
			updated_by=EXCLUDED.updated_by,
			revision=theme_configs.revision + 1,
			updated_at=NOW()
		RETURNING revision
	`, tenantID, cfg.Theme, string(raw), updatedBy).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("save theme config: %w", err)
	}
	return revision, nil
}

func (s *PostgresStore) GetThemeRecord(ctx context.Context, tenantID string) (ThemeRecord, error) {
	var rec ThemeRecord
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, document, header_text, search_placeholder, revision, updated_by, updated_at
		FROM theme_configs WHERE tenant_id=$1
	`, tenantID).Scan(&rec.TenantID, &raw, &rec.Branding.HeaderText, &rec.Branding.SearchPlaceholder,
		&rec.Revision, &rec.UpdatedBy, &rec.UpdatedAt)
	if err != nil {
		return ThemeRecord{}, err
	}
	if err := json.Unmarshal(raw, &rec.Config); err != nil {
		return ThemeRecord{}, fmt.Errorf("decode theme config: %w", err)
	}
	return rec, nil
}

// SaveBranding stores header copy next to an already saved document.
func (s *PostgresStore) SaveBranding(ctx context.Context, tenantID string, b theme.Branding) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE theme_configs SET header_text=$2, search_placeholder=$3 WHERE tenant_id=$1
	`, tenantID, b.HeaderText, b.SearchPlaceholder)
	if err != nil {
		return fmt.Errorf("save branding: %w", err)
	}
	return expectAffected(res, "save branding")
}

// LoadBranding returns stored header copy; false when none was set.
func (s *PostgresStore) LoadBranding(ctx context.Context, tenantID string) (theme.Branding, bool, error) {
	var b theme.Branding
	err := s.db.QueryRowContext(ctx, `
		SELECT header_text, search_placeholder FROM theme_configs WHERE tenant_id=$1
	`, tenantID).Scan(&b.HeaderText, &b.SearchPlaceholder)
	if errors.Is(err, sql.ErrNoRows) {
		return theme.Branding{}, false, nil
	}
	if err != nil {
		return theme.Branding{}, false, fmt.Errorf("load branding: %w", err)
	}
	return b, b.HeaderText != "", nil
}

func (s *PostgresStore) GetSectionContent(ctx context.Context, tenantID, sectionID string) (theme.Content, bool, error) {
	var c theme.Content
	var style []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT title, description, icon, style_override
		FROM section_contents WHERE tenant_id=$1 AND section_id=$2
	`, tenantID, sectionID).Scan(&c.Title, &c.Description, &c.Icon, &style)
	if errors.Is(err, sql.ErrNoRows) {
		return theme.Content{}, false, nil
	}
	if err != nil {
		return theme.Content{}, false, fmt.Errorf("get section content: %w", err)
	}
	if len(style) > 0 {
		var o theme.StyleOverride
		if err := json.Unmarshal(style, &o); err != nil {
			return theme.Content{}, false, fmt.Errorf("decode style override: %w", err)
		}
		if !o.IsZero() {
			c.StyleOverride = &o
		}
	}
	return c, true, nil
}

func (s *PostgresStore) PutSectionContent(ctx context.Context, tenantID, sectionID string, c theme.Content) error {
	var style any
	if c.StyleOverride != nil && !c.StyleOverride.IsZero() {
		raw, err := json.Marshal(c.StyleOverride)
		if err != nil {
			return fmt.Errorf("encode style override: %w", err)
		}
		style = string(raw)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO section_contents (tenant_id, section_id, title, description, icon, style_override)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, section_id) DO UPDATE
		SET title=EXCLUDED.title,
			description=EXCLUDED.description,
			icon=EXCLUDED.icon,
			style_override=EXCLUDED.style_override,
			updated_at=NOW()
	`, tenantID, sectionID, c.Title, c.Description, c.Icon, style)
	if err != nil {
		return fmt.Errorf("put section content: %w", err)
	}
	return nil
}

const pageColumns = `id, tenant_id, title, content, page_type, status, created_by, created_at, updated_at`

func scanPage(row interface{ Scan(...any) error }) (Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.TenantID, &p.Title, &p.Content, &p.Type, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PostgresStore) ListPages(ctx context.Context, tenantID string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+` FROM pages WHERE tenant_id=$1 ORDER BY updated_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	items := make([]Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPage(ctx context.Context, tenantID, pageID string) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+` FROM pages WHERE tenant_id=$1 AND id=$2
	`, tenantID, pageID))
}

func (s *PostgresStore) InsertPage(ctx context.Context, p Page) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `
		INSERT INTO pages (id, tenant_id, title, content, page_type, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+pageColumns, p.ID, p.TenantID, p.Title, p.Content, p.Type, p.Status, p.CreatedBy))
}

func (s *PostgresStore) UpdatePage(ctx context.Context, p Page) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `
		UPDATE pages SET title=$3, content=$4, page_type=$5, status=$6, updated_at=NOW()
		WHERE tenant_id=$1 AND id=$2
		RETURNING `+pageColumns, p.TenantID, p.ID, p.Title, p.Content, p.Type, p.Status))
}

func (s *PostgresStore) DeletePage(ctx context.Context, tenantID, pageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE tenant_id=$1 AND id=$2`, tenantID, pageID)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return expectAffected(res, "delete page")
}

const articleColumns = `id, tenant_id, title, content, category, status, views, author_id, created_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.TenantID, &a.Title, &a.Content, &a.Category, &a.Status, &a.Views, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListArticles lists a tenant's articles, optionally limited to a category.
func (s *PostgresStore) ListArticles(ctx context.Context, tenantID, category string) ([]Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE tenant_id=$1`
	args := []any{tenantID}
	if category = strings.TrimSpace(category); category != "" {
		query += ` AND category=$2`
		args = append(args, category)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetArticle(ctx context.Context, tenantID, articleID string) (Article, error) {
	return scanArticle(s.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+` FROM articles WHERE tenant_id=$1 AND id=$2
	`, tenantID, articleID))
}

func (s *PostgresStore) InsertArticle(ctx context.Context, a Article) (Article, error) {
	return scanArticle(s.db.QueryRowContext(ctx, `
		INSERT INTO articles (id, tenant_id, title, content, category, status, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+articleColumns, a.ID, a.TenantID, a.Title, a.Content, a.Category, a.Status, a.AuthorID))
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, a Article) (Article, error) {
	return scanArticle(s.db.QueryRowContext(ctx, `
		UPDATE articles SET title=$3, content=$4, category=$5, status=$6, updated_at=NOW()
		WHERE tenant_id=$1 AND id=$2
		RETURNING `+articleColumns, a.TenantID, a.ID, a.Title, a.Content, a.Category, a.Status))
}

func (s *PostgresStore) IncrementArticleViews(ctx context.Context, tenantID, articleID string) (int, error) {
	var views int
	err := s.db.QueryRowContext(ctx, `
		UPDATE articles SET views=views + 1 WHERE tenant_id=$1 AND id=$2 RETURNING views
	`, tenantID, articleID).Scan(&views)
	if err != nil {
		return 0, err
	}
	return views, nil
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, tenantID, articleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE tenant_id=$1 AND id=$2`, tenantID, articleID)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return expectAffected(res, "delete article")
}

const messageColumns = `id, tenant_id, name, email, phone, subject, body, preferred_contact, priority, status, is_read, notes, created_at, updated_at`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var m Message
	var notes []byte
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Body,
		&m.PreferredContact, &m.Priority, &m.Status, &m.IsRead, &notes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Message{}, err
	}
	m.Notes = make([]MessageNote, 0)
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &m.Notes); err != nil {
			return Message{}, fmt.Errorf("decode message notes: %w", err)
		}
	}
	return m, nil
}

func (s *PostgresStore) InsertMessage(ctx context.Context, m Message) (Message, error) {
	return scanMessage(s.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, tenant_id, name, email, phone, subject, body, preferred_contact, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'new')
		RETURNING `+messageColumns,
		m.ID, m.TenantID, m.Name, m.Email, m.Phone, m.Subject, m.Body, m.PreferredContact, m.Priority))
}

func (s *PostgresStore) ListMessages(ctx context.Context, tenantID string, filter MessageFilter) ([]Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE tenant_id=$1`
	args := []any{tenantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		query += fmt.Sprintf(` AND priority=$%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, tenantID, messageID string) (Message, error) {
	return scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE tenant_id=$1 AND id=$2
	`, tenantID, messageID))
}

func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, tenantID, messageID, status string) (Message, error) {
	return scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages SET status=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2
		RETURNING `+messageColumns, tenantID, messageID, status))
}

func (s *PostgresStore) MarkMessageRead(ctx context.Context, tenantID, messageID string, read bool) (Message, error) {
	return scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages SET is_read=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2
		RETURNING `+messageColumns, tenantID, messageID, read))
}

func (s *PostgresStore) AppendMessageNote(ctx context.Context, tenantID, messageID string, note MessageNote) (Message, error) {
	raw, err := json.Marshal([]MessageNote{note})
	if err != nil {
		return Message{}, fmt.Errorf("encode note: %w", err)
	}
	return scanMessage(s.db.QueryRowContext(ctx, `
		UPDATE messages SET notes=notes || $3::jsonb, updated_at=NOW() WHERE tenant_id=$1 AND id=$2
		RETURNING `+messageColumns, tenantID, messageID, string(raw)))
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, tenantID, messageID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE tenant_id=$1 AND id=$2`, tenantID, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return expectAffected(res, "delete message")
}

const inviteColumns = `id, tenant_id, email, role, status, token_hash, invited_by, created_at, expires_at`

func scanInvite(row interface{ Scan(...any) error }) (Invite, error) {
	var inv Invite
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Email, &inv.Role, &inv.Status, &inv.TokenHash, &inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt)
	return inv, err
}

func (s *PostgresStore) InsertInvite(ctx context.Context, inv Invite) (Invite, error) {
	return scanInvite(s.db.QueryRowContext(ctx, `
		INSERT INTO team_invites (id, tenant_id, email, role, status, token_hash, invited_by, expires_at)
		VALUES ($1, $2, LOWER($3), $4, 'pending', $5, $6, $7)
		RETURNING `+inviteColumns,
		inv.ID, inv.TenantID, inv.Email, inv.Role, inv.TokenHash, inv.InvitedBy, inv.ExpiresAt))
}

func (s *PostgresStore) ListInvites(ctx context.Context, tenantID string) ([]Invite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+inviteColumns+` FROM team_invites WHERE tenant_id=$1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	items := make([]Invite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invites: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetInviteByTokenHash(ctx context.Context, tokenHash string) (Invite, error) {
	return scanInvite(s.db.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM team_invites WHERE token_hash=$1
	`, tokenHash))
}

// UpdateInviteStatus moves a pending invite to status.
func (s *PostgresStore) UpdateInviteStatus(ctx context.Context, tenantID, inviteID, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE team_invites SET status=$3 WHERE tenant_id=$1 AND id=$2 AND status='pending'
	`, tenantID, inviteID, status)
	if err != nil {
		return fmt.Errorf("update invite: %w", err)
	}
	return expectAffected(res, "update invite")
}

func (s *PostgresStore) GetDomainSettings(ctx context.Context, tenantID string) (DomainSettings, error) {
	var d DomainSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, domain, updated_at FROM domain_settings WHERE tenant_id=$1
	`, tenantID).Scan(&d.TenantID, &d.Domain, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DomainSettings{TenantID: tenantID}, nil
	}
	if err != nil {
		return DomainSettings{}, fmt.Errorf("get domain settings: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) SaveDomainSettings(ctx context.Context, d DomainSettings) (DomainSettings, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO domain_settings (tenant_id, domain) VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET domain=EXCLUDED.domain, updated_at=NOW()
		RETURNING tenant_id, domain, updated_at
	`, d.TenantID, d.Domain).Scan(&d.TenantID, &d.Domain, &d.UpdatedAt)
	if err != nil {
		return DomainSettings{}, fmt.Errorf("save domain settings: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) InsertUpload(ctx context.Context, u Upload) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (id, tenant_id, object_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.TenantID, u.ObjectKey, u.ContentType, u.SizeBytes, u.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}
