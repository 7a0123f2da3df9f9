package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"helpcenter/api/internal/auth"
	"helpcenter/api/internal/email"
	"helpcenter/api/internal/rbac"
	"helpcenter/api/internal/search"
	"helpcenter/api/internal/store"
	"helpcenter/api/internal/triage"
	"helpcenter/api/internal/util"
)

const inviteTTL = 7 * 24 * time.Hour

func checkPublishStatus(status string) (string, error) {
	switch status {
	case "":
		return "draft", nil
	case "draft", "published":
		return status, nil
	}
	return "", validationError("status", "status must be draft or published")
}

type PageInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Status  string `json:"status"`
}

func (in PageInput) page() (store.Page, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return store.Page{}, validationError("title", "title is required")
	}
	status, err := checkPublishStatus(in.Status)
	if err != nil {
		return store.Page{}, err
	}
	pageType := strings.TrimSpace(in.Type)
	if pageType == "" {
		pageType = "custom"
	}
	return store.Page{Title: title, Content: in.Content, Type: pageType, Status: status}, nil
}

func pageRecord(p store.Page) search.PageRecord {
	return search.PageRecord{ID: p.ID, TenantID: p.TenantID, Title: p.Title, Content: p.Content, Type: p.Type, Status: p.Status}
}

func (s *Service) ListPages(ctx context.Context, sess Session) ([]store.Page, error) {
	if err := s.authorize(sess, rbac.ViewArticles); err != nil {
		return nil, err
	}
	return s.store.ListPages(ctx, sess.TenantID)
}

func (s *Service) GetPage(ctx context.Context, sess Session, pageID string) (store.Page, error) {
	if err := s.authorize(sess, rbac.ViewArticles); err != nil {
		return store.Page{}, err
	}
	return s.store.GetPage(ctx, sess.TenantID, pageID)
}

func (s *Service) CreatePage(ctx context.Context, sess Session, in PageInput) (store.Page, error) {
	if err := s.authorize(sess, rbac.ManageArticles); err != nil {
		return store.Page{}, err
	}
	p, err := in.page()
	if err != nil {
		return store.Page{}, err
	}
	p.ID = util.NewID("page")
	p.TenantID = sess.TenantID
	p.CreatedBy = sess.UserID
	created, err := s.store.InsertPage(ctx, p)
	if err != nil {
		return store.Page{}, err
	}
	if s.search != nil {
		s.search.IndexPage(pageRecord(created))
	}
	return created, nil
}

func (s *Service) UpdatePage(ctx context.Context, sess Session, pageID string, in PageInput) (store.Page, error) {
	if err := s.authorize(sess, rbac.ManageArticles); err != nil {
		return store.Page{}, err
	}
	p, err := in.page()
	if err != nil {
		return store.Page{}, err
	}
	p.ID = pageID
	p.TenantID = sess.TenantID
	updated, err := s.store.UpdatePage(ctx, p)
	if err != nil {
		return store.Page{}, err
	}
	if s.search != nil {
		s.search.IndexPage(pageRecord(updated))
	}
	return updated, nil
}

func (s *Service) DeletePage(ctx context.Context, sess Session, pageID string) error {
	if err := s.authorize(sess, rbac.ManageArticles); err != nil {
		return err
	}
	if err := s.store.DeletePage(ctx, sess.TenantID, pageID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeletePage(pageID)
	}
	return nil
}

type ArticleInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

func (in ArticleInput) article() (store.Article, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return store.Article{}, validationError("title", "title is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return store.Article{}, validationError("category", "category is required")
	}
	status, err := checkPublishStatus(in.Status)
	if err != nil {
		return store.Article{}, err
	}
	return store.Article{Title: title, Content: in.Content, Category: category, Status: status}, nil
}

func articleRecord(a store.Article) search.ArticleRecord {
	return search.ArticleRecord{ID: a.ID, TenantID: a.TenantID, Title: a.Title, Content: a.Content, Category: a.Category, Status: a.Status}
}

func (s *Service) ListArticles(ctx context.Context, sess Session, category string) ([]store.Article, error) {
	if err := s.authorize(sess, rbac.ViewArticles); err != nil {
		return nil, err
	}
	return s.store.ListArticles(ctx, sess.TenantID, strings.TrimSpace(category))
}

func (s *Service) GetArticle(ctx context.Context, sess Session, articleID string) (store.Article, error) {
	if err := s.authorize(sess, rbac.ViewArticles); err != nil {
		return store.Article{}, err
	}
	return s.store.GetArticle(ctx, sess.TenantID, articleID)
}

func (s *Service) CreateArticle(ctx context.Context, sess Session, in ArticleInput) (store.Article, error) {
	if err := s.authorize(sess, rbac.ManageArticles); err != nil {
		return store.Article{}, err
	}
	a, err := in.article()
	if err != nil {
		return store.Article{}, err
	}
	a.ID = util.NewID("art")
	a.TenantID = sess.TenantID
	a.AuthorID = sess.UserID
	created, err := s.store.InsertArticle(ctx, a)
	if err != nil {
		return store.Article{}, err
	}
	if s.search != nil {
		s.search.IndexArticle(articleRecord(created))
	}
	return created, nil
}

func (s *Service) UpdateArticle(ctx context.Context, sess Session, articleID string, in ArticleInput) (store.Article, error) {
	if err := s.authorize(sess, rbac.ManageArticles); err != nil {
		return store.Article{}, err
	}
	a, err := in.article()
	if err != nil {
		return store.Article{}, err
	}
	a.ID = articleID
	a.TenantID = sess.TenantID
	updated, err := s.store.UpdateArticle(ctx, a)
	if err != nil {
		return store.Article{}, err
	}
	if s.search != nil {
		s.search.IndexArticle(articleRecord(updated))
	}
	return updated, nil
}

func (s *Service) DeleteArticle(ctx context.Context, sess Session, articleID string) error {
	if err := s.authorize(sess, rbac.ManageArticles); err != nil {
		return err
	}
	if err := s.store.DeleteArticle(ctx, sess.TenantID, articleID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteArticle(articleID)
	}
	return nil
}

// PublicArticle returns a published article to help-center visitors and
// counts the view, recording the visitor's country for analytics.
func (s *Service) PublicArticle(ctx context.Context, tenantID, articleID, country string) (store.Article, error) {
	a, err := s.store.GetArticle(ctx, tenantID, articleID)
	if err != nil {
		return store.Article{}, err
	}
	if a.Status != "published" {
		return store.Article{}, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	s.recordPageView(ctx, tenantID, articlePath(articleID), country)
	views, err := s.store.IncrementArticleViews(ctx, tenantID, articleID)
	if err != nil {
		s.logger.Warn("article view not counted", "tenant_id", tenantID, "article_id", articleID, "err", err)
		return a, nil
	}
	a.Views = views
	return a, nil
}

func (s *Service) Search(ctx context.Context, sess Session, text, kind string, limit, offset int) search.Response {
	q := search.Query{
		Text:       strings.TrimSpace(text),
		TenantID:   sess.TenantID,
		FilterType: search.ResultType(kind),
		Limit:      limit,
		Offset:     offset,
	}
	if s.search == nil || q.Text == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// PublicSearch only finds published content. Visitor search terms are
// recorded for analytics.
func (s *Service) PublicSearch(ctx context.Context, tenantID, text string, limit int) search.Response {
	q := search.Query{Text: strings.TrimSpace(text), TenantID: tenantID, PublishedOnly: true, Limit: limit}
	s.recordSearch(ctx, tenantID, q.Text)
	if s.search == nil || q.Text == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// ContactInput is a message left on the public contact form.
type ContactInput struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Subject          string `json:"subject"`
	Body             string `json:"message"`
	PreferredContact string `json:"preferredContact"`
}

// SubmitMessage stores a contact form message with a priority derived
// from its subject and body.
func (s *Service) SubmitMessage(ctx context.Context, tenantID string, in ContactInput) (store.Message, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return store.Message{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.Message{}, validationError("name", "name is required")
	}
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Body) == "" {
		return store.Message{}, validationError("message", "subject and message are required")
	}
	method := triage.ContactMethod(strings.TrimSpace(in.PreferredContact))
	if method == "" {
		method = triage.ContactEmail
	}
	if err := triage.CheckContact(method, in.Email, in.Phone); err != nil {
		return store.Message{}, validationError("preferredContact", err.Error())
	}
	if e := strings.TrimSpace(in.Email); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			return store.Message{}, validationError("email", "email is invalid")
		}
	}

	priority := triage.Classify(in.Subject, in.Body)
	msg, err := s.store.InsertMessage(ctx, store.Message{
		ID:               util.NewID("msg"),
		TenantID:         tenantID,
		Name:             name,
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		Subject:          strings.TrimSpace(in.Subject),
		Body:             in.Body,
		PreferredContact: string(method),
		Priority:         string(priority),
		Status:           string(triage.StatusNew),
	})
	if err != nil {
		return store.Message{}, err
	}
	s.logger.Info("message received", "tenant_id", tenantID, "message_id", msg.ID, "priority", priority)
	return msg, nil
}

// ListMessages returns messages by priority, then newest first.
func (s *Service) ListMessages(ctx context.Context, sess Session, status, priority string) ([]store.Message, error) {
	if err := s.authorize(sess, rbac.ViewMessages); err != nil {
		return nil, err
	}
	filter := store.MessageFilter{}
	if status != "" {
		st, err := triage.ParseStatus(status)
		if err != nil {
			return nil, validationError("status", err.Error())
		}
		filter.Status = string(st)
	}
	if priority != "" {
		p, err := triage.ParsePriority(priority)
		if err != nil {
			return nil, validationError("priority", err.Error())
		}
		filter.Priority = string(p)
	}
	msgs, err := s.store.ListMessages(ctx, sess.TenantID, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		ri, rj := triage.Rank(triage.Priority(msgs[i].Priority)), triage.Rank(triage.Priority(msgs[j].Priority))
		if ri != rj {
			return ri < rj
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// GetMessage returns a message and marks it read.
func (s *Service) GetMessage(ctx context.Context, sess Session, messageID string) (store.Message, error) {
	if err := s.authorize(sess, rbac.ViewMessages); err != nil {
		return store.Message{}, err
	}
	msg, err := s.store.GetMessage(ctx, sess.TenantID, messageID)
	if err != nil {
		return store.Message{}, err
	}
	if msg.IsRead {
		return msg, nil
	}
	return s.store.MarkMessageRead(ctx, sess.TenantID, messageID, true)
}

func (s *Service) SetMessageStatus(ctx context.Context, sess Session, messageID, status string) (store.Message, error) {
	if err := s.authorize(sess, rbac.RespondMessages); err != nil {
		return store.Message{}, err
	}
	st, err := triage.ParseStatus(status)
	if err != nil {
		return store.Message{}, validationError("status", err.Error())
	}
	return s.store.UpdateMessageStatus(ctx, sess.TenantID, messageID, string(st))
}

func (s *Service) MarkMessageRead(ctx context.Context, sess Session, messageID string, read bool) (store.Message, error) {
	if err := s.authorize(sess, rbac.ViewMessages); err != nil {
		return store.Message{}, err
	}
	return s.store.MarkMessageRead(ctx, sess.TenantID, messageID, read)
}

func (s *Service) AddMessageNote(ctx context.Context, sess Session, messageID, text string) (store.Message, error) {
	if err := s.authorize(sess, rbac.RespondMessages); err != nil {
		return store.Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Message{}, validationError("text", "note text is required")
	}
	return s.store.AppendMessageNote(ctx, sess.TenantID, messageID, store.MessageNote{
		Text:      text,
		UserID:    sess.UserID,
		Timestamp: s.now().UTC(),
	})
}

func (s *Service) DeleteMessage(ctx context.Context, sess Session, messageID string) error {
	if err := s.authorize(sess, rbac.DeleteMessages); err != nil {
		return err
	}
	return s.store.DeleteMessage(ctx, sess.TenantID, messageID)
}

// Member is a team member without credentials.
type Member struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

func memberOf(u store.User) Member {
	return Member{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email, Role: rbac.Normalize(u.Role), CreatedAt: u.CreatedAt}
}

func (s *Service) ListTeam(ctx context.Context, sess Session) ([]Member, error) {
	users, err := s.store.ListTeam(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(users))
	for _, u := range users {
		out = append(out, memberOf(u))
	}
	return out, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, sess Session, userID, role string) (Member, error) {
	if err := s.authorize(sess, rbac.ManageTeam); err != nil {
		return Member{}, err
	}
	if !rbac.Valid(role) {
		return Member{}, validationError("role", fmt.Sprintf("unknown role %q", role))
	}
	if userID == sess.UserID {
		return Member{}, domainError(http.StatusConflict, "SELF_ROLE_CHANGE", "You cannot change your own role", nil)
	}
	if err := s.store.UpdateUserRole(ctx, sess.TenantID, userID, role); err != nil {
		return Member{}, err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Member{}, err
	}
	return memberOf(u), nil
}

func (s *Service) RemoveMember(ctx context.Context, sess Session, userID string) error {
	if err := s.authorize(sess, rbac.ManageTeam); err != nil {
		return err
	}
	if userID == sess.UserID {
		return domainError(http.StatusConflict, "SELF_REMOVAL", "You cannot remove yourself", nil)
	}
	return s.store.DeleteUser(ctx, sess.TenantID, userID)
}

// InviteResult is a created invitation. AcceptURL is only returned when
// no mail server is configured, so the link can be passed on by hand.
type InviteResult struct {
	Invite    store.Invite `json:"invite"`
	EmailSent bool         `json:"emailSent"`
	AcceptURL string       `json:"acceptUrl,omitempty"`
}

func (s *Service) InviteMember(ctx context.Context, sess Session, address, role string) (InviteResult, error) {
	if err := s.authorize(sess, rbac.ManageTeam); err != nil {
		return InviteResult{}, err
	}
	address = strings.ToLower(strings.TrimSpace(address))
	if parsed, err := mail.ParseAddress(address); err != nil || parsed.Address != address {
		return InviteResult{}, validationError("email", "email is invalid")
	}
	if !rbac.Valid(role) {
		return InviteResult{}, validationError("role", fmt.Sprintf("unknown role %q", role))
	}
	if existing, err := s.store.GetUserByEmail(ctx, address); err == nil && existing.ID != "" {
		return InviteResult{}, domainError(http.StatusConflict, "ALREADY_MEMBER", "This email already belongs to a team member", nil)
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return InviteResult{}, err
	}
	inv, err := s.store.InsertInvite(ctx, store.Invite{
		ID:        util.NewID("inv"),
		TenantID:  sess.TenantID,
		Email:     address,
		Role:      role,
		Status:    "pending",
		TokenHash: auth.HashToken(token),
		InvitedBy: sess.UserID,
		ExpiresAt: s.now().Add(inviteTTL).UTC(),
	})
	if err != nil {
		return InviteResult{}, err
	}

	acceptURL := s.cfg.ConsoleURL + "/accept-invite?token=" + token
	result := InviteResult{Invite: inv}
	if s.mail == nil || !s.mail.IsConfigured() {
		result.AcceptURL = acceptURL
		return result, nil
	}
	roleName := string(rbac.Normalize(role))
	for _, info := range rbac.Roles() {
		if string(info.Role) == role {
			roleName = info.Name
		}
	}
	err = s.mail.SendInvitation(address, email.Invitation{
		CompanyName: s.companyName(ctx, sess.TenantID),
		InviterName: sess.UserName,
		RoleName:    roleName,
		AcceptURL:   acceptURL,
	})
	if err != nil {
		s.logger.Warn("invitation email failed", "tenant_id", sess.TenantID, "invite_id", inv.ID, "err", err)
		result.AcceptURL = acceptURL
		return result, nil
	}
	result.EmailSent = true
	return result, nil
}

func (s *Service) ListInvites(ctx context.Context, sess Session) ([]store.Invite, error) {
	if err := s.authorize(sess, rbac.ManageTeam); err != nil {
		return nil, err
	}
	return s.store.ListInvites(ctx, sess.TenantID)
}

func (s *Service) CancelInvite(ctx context.Context, sess Session, inviteID string) error {
	if err := s.authorize(sess, rbac.ManageTeam); err != nil {
		return err
	}
	return s.store.UpdateInviteStatus(ctx, sess.TenantID, inviteID, "cancelled")
}

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{1,61}[a-zA-Z0-9]\.[a-zA-Z]{2,}$`)

func (s *Service) DomainSettings(ctx context.Context, sess Session) (store.DomainSettings, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return store.DomainSettings{}, err
	}
	return s.store.GetDomainSettings(ctx, sess.TenantID)
}

// SaveDomain stores the custom domain. An empty domain removes it.
func (s *Service) SaveDomain(ctx context.Context, sess Session, domain string) (store.DomainSettings, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return store.DomainSettings{}, err
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain != "" && !domainPattern.MatchString(domain) {
		return store.DomainSettings{}, validationError("domain", "Invalid domain format")
	}
	return s.store.SaveDomainSettings(ctx, store.DomainSettings{TenantID: sess.TenantID, Domain: domain})
}

func (s *Service) Company(ctx context.Context, sess Session) (store.Tenant, error) {
	return s.store.GetTenant(ctx, sess.TenantID)
}

type CompanyInput struct {
	Name     string `json:"name"`
	LogoURL  string `json:"logoUrl"`
	Industry string `json:"industry"`
	Website  string `json:"website"`
	Address  string `json:"address"`
}

func (s *Service) UpdateCompany(ctx context.Context, sess Session, in CompanyInput) (store.Tenant, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return store.Tenant{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return store.Tenant{}, validationError("name", "company name is required")
	}
	return s.store.UpdateTenantProfile(ctx, store.Tenant{
		ID:       sess.TenantID,
		Name:     name,
		LogoURL:  strings.TrimSpace(in.LogoURL),
		Industry: strings.TrimSpace(in.Industry),
		Website:  strings.TrimSpace(in.Website),
		Address:  strings.TrimSpace(in.Address),
	})
}

// UploadInput describes an image taken from a multipart form.
type UploadInput struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadResult struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadImage stores an image for the profile, company or article folders.
// Company images need settings access; profile photos only need a session.
func (s *Service) UploadImage(ctx context.Context, sess Session, in UploadInput) (UploadResult, error) {
	if s.images == nil {
		return UploadResult{}, errUploadsOff
	}
	switch in.Folder {
	case "companies":
		if err := s.authorize(sess, rbac.ManageSettings); err != nil {
			return UploadResult{}, err
		}
	case "articles":
		if err := s.authorize(sess, rbac.ManageArticles); err != nil {
			return UploadResult{}, err
		}
	}
	obj, err := s.images.PutImage(ctx, sess.TenantID, in.Folder, in.Filename, in.ContentType, in.Size, in.Body)
	if err != nil {
		return UploadResult{}, err
	}
	up := store.Upload{
		ID:          util.NewID("upl"),
		TenantID:    sess.TenantID,
		ObjectKey:   obj.Key,
		ContentType: obj.ContentType,
		SizeBytes:   obj.Size,
		UploadedBy:  sess.UserID,
	}
	if err := s.store.InsertUpload(ctx, up); err != nil {
		return UploadResult{}, fmt.Errorf("record upload: %w", err)
	}
	return UploadResult{ID: up.ID, Key: obj.Key, URL: obj.URL, ContentType: obj.ContentType, Size: obj.Size}, nil
}

