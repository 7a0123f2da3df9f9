package app

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"helpcenter/api/internal/analytics"
	"helpcenter/api/internal/store"
	"helpcenter/api/internal/theme"
)

// memStore is an in-memory dataStore. The func fields override single
// methods to inject failures.
type memStore struct {
	mu sync.Mutex

	tenants   map[string]store.Tenant
	users     map[string]store.User
	themes    map[string]theme.Config
	revisions map[string]int64
	branding  map[string]theme.Branding
	content   map[string]theme.Content
	pages     map[string]store.Page
	articles  map[string]store.Article
	messages  map[string]store.Message
	invites   map[string]store.Invite
	domains   map[string]store.DomainSettings
	uploads   []store.Upload
	views     []analytics.PageView
	searches  []analytics.SearchEvent

	pingFn              func(context.Context) error
	saveThemeConfigFn   func(context.Context, string, theme.Config, string) (int64, error)
	putSectionContentFn func(context.Context, string, string, theme.Content) error
}

func newMemStore() *memStore {
	return &memStore{
		tenants:   map[string]store.Tenant{},
		users:     map[string]store.User{},
		themes:    map[string]theme.Config{},
		revisions: map[string]int64{},
		branding:  map[string]theme.Branding{},
		content:   map[string]theme.Content{},
		pages:     map[string]store.Page{},
		articles:  map[string]store.Article{},
		messages:  map[string]store.Message{},
		invites:   map[string]store.Invite{},
		domains:   map[string]store.DomainSettings{},
	}
}

func (m *memStore) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *memStore) CreateTenantWithAdmin(_ context.Context, t store.Tenant, admin store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	m.users[admin.ID] = admin
	return nil
}

func (m *memStore) GetTenant(_ context.Context, id string) (store.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return store.Tenant{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *memStore) UpdateTenantProfile(_ context.Context, t store.Tenant) (store.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[t.ID]; !ok {
		return store.Tenant{}, sql.ErrNoRows
	}
	m.tenants[t.ID] = t
	return t, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memStore) InsertUser(_ context.Context, u store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) ListTeam(_ context.Context, tenantID string) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) UpdateUserRole(_ context.Context, tenantID, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return sql.ErrNoRows
	}
	u.Role = role
	m.users[userID] = u
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, tenantID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.users, userID)
	return nil
}

func (m *memStore) LoadThemeConfig(_ context.Context, tenantID string) (theme.Config, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.themes[tenantID]
	return cfg, ok, nil
}

func (m *memStore) SaveThemeConfig(ctx context.Context, tenantID string, cfg theme.Config, author string) (int64, error) {
	if m.saveThemeConfigFn != nil {
		return m.saveThemeConfigFn(ctx, tenantID, cfg, author)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[tenantID] = cfg
	m.revisions[tenantID]++
	return m.revisions[tenantID], nil
}

func (m *memStore) SaveBranding(_ context.Context, tenantID string, b theme.Branding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.themes[tenantID]; !ok {
		return sql.ErrNoRows
	}
	m.branding[tenantID] = b
	return nil
}

func (m *memStore) LoadBranding(_ context.Context, tenantID string) (theme.Branding, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branding[tenantID]
	return b, ok, nil
}

func (m *memStore) GetSectionContent(_ context.Context, tenantID, sectionID string) (theme.Content, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.content[tenantID+"/"+sectionID]
	return c, ok, nil
}

func (m *memStore) PutSectionContent(ctx context.Context, tenantID, sectionID string, c theme.Content) error {
	if m.putSectionContentFn != nil {
		return m.putSectionContentFn(ctx, tenantID, sectionID, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[tenantID+"/"+sectionID] = c
	return nil
}

func (m *memStore) ListPages(_ context.Context, tenantID string) ([]store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Page{}
	for _, p := range m.pages {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetPage(_ context.Context, tenantID, id string) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok || p.TenantID != tenantID {
		return store.Page{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memStore) InsertPage(_ context.Context, p store.Page) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	m.pages[p.ID] = p
	return p, nil
}

func (m *memStore) UpdatePage(_ context.Context, p store.Page) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.pages[p.ID]
	if !ok || old.TenantID != p.TenantID {
		return store.Page{}, sql.ErrNoRows
	}
	p.CreatedAt, p.UpdatedAt = old.CreatedAt, time.Now()
	m.pages[p.ID] = p
	return p, nil
}

func (m *memStore) DeletePage(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok || p.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.pages, id)
	return nil
}

func (m *memStore) ListArticles(_ context.Context, tenantID, category string) ([]store.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Article{}
	for _, a := range m.articles {
		if a.TenantID == tenantID && (category == "" || a.Category == category) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetArticle(_ context.Context, tenantID, id string) (store.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok || a.TenantID != tenantID {
		return store.Article{}, sql.ErrNoRows
	}
	return a, nil
}

func (m *memStore) InsertArticle(_ context.Context, a store.Article) (store.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	m.articles[a.ID] = a
	return a, nil
}

func (m *memStore) UpdateArticle(_ context.Context, a store.Article) (store.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.articles[a.ID]
	if !ok || old.TenantID != a.TenantID {
		return store.Article{}, sql.ErrNoRows
	}
	a.Views, a.CreatedAt, a.UpdatedAt = old.Views, old.CreatedAt, time.Now()
	m.articles[a.ID] = a
	return a, nil
}

func (m *memStore) IncrementArticleViews(_ context.Context, tenantID, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok || a.TenantID != tenantID {
		return 0, sql.ErrNoRows
	}
	a.Views++
	m.articles[id] = a
	return a.Views, nil
}

func (m *memStore) DeleteArticle(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok || a.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.articles, id)
	return nil
}

func (m *memStore) InsertMessage(_ context.Context, msg store.Message) (store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *memStore) ListMessages(_ context.Context, tenantID string, f store.MessageFilter) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Message{}
	for _, msg := range m.messages {
		if msg.TenantID != tenantID {
			continue
		}
		if f.Status != "" && msg.Status != f.Status {
			continue
		}
		if f.Priority != "" && msg.Priority != f.Priority {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *memStore) GetMessage(_ context.Context, tenantID, id string) (store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.TenantID != tenantID {
		return store.Message{}, sql.ErrNoRows
	}
	return msg, nil
}

func (m *memStore) updateMessage(tenantID, id string, fn func(*store.Message)) (store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.TenantID != tenantID {
		return store.Message{}, sql.ErrNoRows
	}
	fn(&msg)
	msg.UpdatedAt = time.Now()
	m.messages[id] = msg
	return msg, nil
}

func (m *memStore) UpdateMessageStatus(_ context.Context, tenantID, id, status string) (store.Message, error) {
	return m.updateMessage(tenantID, id, func(msg *store.Message) { msg.Status = status })
}

func (m *memStore) MarkMessageRead(_ context.Context, tenantID, id string, read bool) (store.Message, error) {
	return m.updateMessage(tenantID, id, func(msg *store.Message) { msg.IsRead = read })
}

func (m *memStore) AppendMessageNote(_ context.Context, tenantID, id string, note store.MessageNote) (store.Message, error) {
	return m.updateMessage(tenantID, id, func(msg *store.Message) { msg.Notes = append(msg.Notes, note) })
}

func (m *memStore) DeleteMessage(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.messages, id)
	return nil
}

func (m *memStore) InsertInvite(_ context.Context, inv store.Invite) (store.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[inv.ID] = inv
	return inv, nil
}

func (m *memStore) ListInvites(_ context.Context, tenantID string) ([]store.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Invite{}
	for _, inv := range m.invites {
		if inv.TenantID == tenantID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memStore) GetInviteByTokenHash(_ context.Context, tokenHash string) (store.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.TokenHash == tokenHash {
			return inv, nil
		}
	}
	return store.Invite{}, sql.ErrNoRows
}

func (m *memStore) UpdateInviteStatus(_ context.Context, tenantID, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok || inv.TenantID != tenantID {
		return sql.ErrNoRows
	}
	inv.Status = status
	m.invites[id] = inv
	return nil
}

func (m *memStore) GetDomainSettings(_ context.Context, tenantID string) (store.DomainSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[tenantID]
	if !ok {
		return store.DomainSettings{TenantID: tenantID}, nil
	}
	return d, nil
}

func (m *memStore) SaveDomainSettings(_ context.Context, d store.DomainSettings) (store.DomainSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UpdatedAt = time.Now()
	m.domains[d.TenantID] = d
	return d, nil
}

func (m *memStore) InsertUpload(_ context.Context, u store.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, u)
	return nil
}

func (m *memStore) InsertPageView(_ context.Context, v analytics.PageView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, v)
	return nil
}

func (m *memStore) InsertSearchEvent(_ context.Context, e analytics.SearchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, e)
	return nil
}

func (m *memStore) AnalyticsCounts(_ context.Context, tenantID string, r analytics.Range) (analytics.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inRange := func(at time.Time) bool { return !at.Before(r.From) && at.Before(r.To) }

	countries := map[string]int64{}
	days := map[string]int64{}
	var c analytics.Counts
	for _, v := range m.views {
		if v.TenantID != tenantID || !inRange(v.At) {
			continue
		}
		c.TotalViews++
		countries[v.Country]++
		days[v.At.UTC().Format("2006-01-02")]++
	}
	terms := map[string]int64{}
	for _, e := range m.searches {
		if e.TenantID == tenantID && inRange(e.At) {
			terms[e.Term]++
		}
	}
	for country, n := range countries {
		c.Countries = append(c.Countries, analytics.CountryCount{Country: country, Visitors: n})
	}
	for day, n := range days {
		c.Days = append(c.Days, analytics.DayCount{Date: day, Views: n})
	}
	for term, n := range terms {
		c.Terms = append(c.Terms, analytics.TermCount{Term: term, Count: n})
	}
	sort.Slice(c.Terms, func(i, j int) bool {
		if c.Terms[i].Count != c.Terms[j].Count {
			return c.Terms[i].Count > c.Terms[j].Count
		}
		return c.Terms[i].Term < c.Terms[j].Term
	})
	if len(c.Terms) > analytics.TopTerms {
		c.Terms = c.Terms[:analytics.TopTerms]
	}
	return c, nil
}
