package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"helpcenter/api/internal/analytics"
	"helpcenter/api/internal/blob"
	"helpcenter/api/internal/rbac"
)

func (s *HTTPServer) consoleRoutes(r chi.Router) {
	r.Get("/search", s.handleSearch)

	r.Route("/pages", func(r chi.Router) {
		r.Get("/", s.handleListPages)
		r.Post("/", s.handleCreatePage)
		r.Get("/{pageID}", s.handleGetPage)
		r.Put("/{pageID}", s.handleUpdatePage)
		r.Delete("/{pageID}", s.handleDeletePage)
	})

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleListArticles)
		r.Post("/", s.handleCreateArticle)
		r.Get("/{articleID}", s.handleGetArticle)
		r.Put("/{articleID}", s.handleUpdateArticle)
		r.Delete("/{articleID}", s.handleDeleteArticle)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", s.handleListMessages)
		r.Get("/{messageID}", s.handleGetMessage)
		r.Put("/{messageID}/status", s.handleMessageStatus)
		r.Put("/{messageID}/read", s.handleMessageRead)
		r.Post("/{messageID}/notes", s.handleMessageNote)
		r.Delete("/{messageID}", s.handleDeleteMessage)
	})

	r.Get("/team", s.handleListTeam)
	r.Get("/team/roles", s.handleRoles)
	r.Put("/team/{userID}/role", s.handleUpdateRole)
	r.Delete("/team/{userID}", s.handleRemoveMember)

	r.Get("/invites", s.handleListInvites)
	r.Post("/invites", s.handleInvite)
	r.Delete("/invites/{inviteID}", s.handleCancelInvite)

	r.Get("/settings/domain", s.handleGetDomain)
	r.Put("/settings/domain", s.handleSaveDomain)
	r.Get("/settings/company", s.handleGetCompany)
	r.Put("/settings/company", s.handleUpdateCompany)

	r.Post("/uploads", s.handleUpload)

	r.Get("/analytics", s.handleAnalytics)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := s.service.Search(r.Context(), sessionFrom(r), q.Get("q"), q.Get("type"), queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.service.ListPages(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

func (s *HTTPServer) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetPage(r.Context(), sessionFrom(r), chi.URLParam(r, "pageID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var body PageInput
	if !decode(w, r, &body) {
		return
	}
	page, err := s.service.CreatePage(r.Context(), sessionFrom(r), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (s *HTTPServer) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var body PageInput
	if !decode(w, r, &body) {
		return
	}
	page, err := s.service.UpdatePage(r.Context(), sessionFrom(r), chi.URLParam(r, "pageID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *HTTPServer) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePage(r.Context(), sessionFrom(r), chi.URLParam(r, "pageID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.service.ListArticles(r.Context(), sessionFrom(r), r.URL.Query().Get("category"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

func (s *HTTPServer) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.service.GetArticle(r.Context(), sessionFrom(r), chi.URLParam(r, "articleID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *HTTPServer) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var body ArticleInput
	if !decode(w, r, &body) {
		return
	}
	article, err := s.service.CreateArticle(r.Context(), sessionFrom(r), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

func (s *HTTPServer) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	var body ArticleInput
	if !decode(w, r, &body) {
		return
	}
	article, err := s.service.UpdateArticle(r.Context(), sessionFrom(r), chi.URLParam(r, "articleID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *HTTPServer) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteArticle(r.Context(), sessionFrom(r), chi.URLParam(r, "articleID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := s.service.ListMessages(r.Context(), sessionFrom(r), q.Get("status"), q.Get("priority"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *HTTPServer) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.service.GetMessage(r.Context(), sessionFrom(r), chi.URLParam(r, "messageID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *HTTPServer) handleMessageStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &body) {
		return
	}
	msg, err := s.service.SetMessageStatus(r.Context(), sessionFrom(r), chi.URLParam(r, "messageID"), body.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *HTTPServer) handleMessageRead(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Read bool `json:"read"`
	}{Read: true}
	if !decode(w, r, &body) {
		return
	}
	msg, err := s.service.MarkMessageRead(r.Context(), sessionFrom(r), chi.URLParam(r, "messageID"), body.Read)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *HTTPServer) handleMessageNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &body) {
		return
	}
	msg, err := s.service.AddMessageNote(r.Context(), sessionFrom(r), chi.URLParam(r, "messageID"), body.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *HTTPServer) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMessage(r.Context(), sessionFrom(r), chi.URLParam(r, "messageID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := s.service.ListTeam(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (s *HTTPServer) handleRoles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": rbac.Roles()})
}

func (s *HTTPServer) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if !decode(w, r, &body) {
		return
	}
	member, err := s.service.UpdateMemberRole(r.Context(), sessionFrom(r), chi.URLParam(r, "userID"), body.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *HTTPServer) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveMember(r.Context(), sessionFrom(r), chi.URLParam(r, "userID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.service.ListInvites(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

func (s *HTTPServer) handleInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if !decode(w, r, &body) {
		return
	}
	res, err := s.service.InviteMember(r.Context(), sessionFrom(r), body.Email, body.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleCancelInvite(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelInvite(r.Context(), sessionFrom(r), chi.URLParam(r, "inviteID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.DomainSettings(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *HTTPServer) handleSaveDomain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
	}
	if !decode(w, r, &body) {
		return
	}
	settings, err := s.service.SaveDomain(r.Context(), sessionFrom(r), body.Domain)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *HTTPServer) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	tenant, err := s.service.Company(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *HTTPServer) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	var body CompanyInput
	if !decode(w, r, &body) {
		return
	}
	tenant, err := s.service.UpdateCompany(r.Context(), sessionFrom(r), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, blob.MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(blob.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, blob.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form with a file field", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", map[string]any{"field": "file"})
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	if folder == "" {
		folder = r.URL.Query().Get("folder")
	}
	res, err := s.service.UploadImage(r.Context(), sessionFrom(r), UploadInput{
		Folder:      folder,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.service.Analytics(r.Context(), sessionFrom(r), q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handlePublicSearch(w http.ResponseWriter, r *http.Request) {
	res := s.service.PublicSearch(r.Context(), chi.URLParam(r, "tenantID"), r.URL.Query().Get("q"), queryInt(r, "limit", 10))
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handlePublicArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.service.PublicArticle(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "articleID"), analytics.CountryFrom(r.Header))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *HTTPServer) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var body ContactInput
	if !decode(w, r, &body) {
		return
	}
	msg, err := s.service.SubmitMessage(r.Context(), chi.URLParam(r, "tenantID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": msg.ID, "priority": msg.Priority})
}
