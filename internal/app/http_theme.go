package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"helpcenter/api/internal/export"
	"helpcenter/api/internal/theme"
)

func (s *HTTPServer) themeRoutes(r chi.Router) {
	r.Get("/themes", s.handleCatalog)
	r.Get("/themes/{themeID}/templates", s.handleTemplates)

	r.Get("/theme", s.handleCurrentTheme)
	r.Get("/theme/history", s.handleThemeHistory)
	r.Get("/theme/history/{hash}", s.handleThemeRevision)
	r.Get("/theme/preview", s.handleThemePreview(false))
	r.Get("/theme/preview.pdf", s.handleThemePreview(true))

	r.Route("/theme/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartEdit)
		r.Route("/{editID}", func(r chi.Router) {
			r.Get("/", s.handleGetEdit)
			r.Delete("/", s.handleDiscardEdit)
			r.Post("/sections", s.handleAddSection)
			r.Delete("/sections/{sectionID}", s.handleRemoveSection)
			r.Post("/sections/{sectionID}/move", s.handleMoveSection)
			r.Post("/sections/{sectionID}/visibility", s.handleToggleVisibility)
			r.Patch("/sections/{sectionID}/style", s.handlePatchStyle)
			r.Put("/sections/{sectionID}/icon", s.handleSetIcon)
			r.Post("/drag/{gesture}", s.handleDrag)
			r.Post("/editor/{action}", s.handleEditor)
			r.Put("/styles", s.handleSetStyles)
			r.Put("/branding", s.handleSetBranding)
			r.Post("/save", s.handleSaveEdit)
			r.Get("/preview", s.handleEditPreview)
		})
	})
}

func writeFile(w http.ResponseWriter, res *export.Result) {
	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *HTTPServer) editResponse(w http.ResponseWriter, r *http.Request, view EditView, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"themes": s.service.Catalog()})
}

func (s *HTTPServer) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.Templates(chi.URLParam(r, "themeID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *HTTPServer) handleCurrentTheme(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.CurrentTheme(r.Context(), sessionFrom(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleThemeHistory(w http.ResponseWriter, r *http.Request) {
	revs, err := s.service.ThemeHistory(r.Context(), sessionFrom(r), queryInt(r, "limit", 20))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (s *HTTPServer) handleThemeRevision(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ThemeRevision(r.Context(), sessionFrom(r), chi.URLParam(r, "hash"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleThemePreview(pdf bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.service.ThemePreview(r.Context(), sessionFrom(r), pdf)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeFile(w, res)
	}
}

func (s *HTTPServer) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	var body StartEditInput
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.StartEdit(r.Context(), sessionFrom(r), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetEdit(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetEdit(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"))
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleDiscardEdit(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DiscardEdit(r.Context(), sessionFrom(r), chi.URLParam(r, "editID")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var body AddSectionInput
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.AddSection(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.RemoveSection(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "sectionID"))
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleMoveSection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To *int `json:"to"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.To == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "to is required", map[string]any{"field": "to"})
		return
	}
	view, err := s.service.MoveSection(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "sectionID"), *body.To)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ToggleVisibility(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "sectionID"))
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handlePatchStyle(w http.ResponseWriter, r *http.Request) {
	var body theme.StyleOverride
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.PatchSectionStyle(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "sectionID"), body)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleSetIcon(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Icon string `json:"icon"`
	}
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.SetSectionIcon(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "sectionID"), body.Icon)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleDrag(w http.ResponseWriter, r *http.Request) {
	var body DragInput
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.Drag(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "gesture"), body)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleEditor(w http.ResponseWriter, r *http.Request) {
	var body EditorInput
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.Editor(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), chi.URLParam(r, "action"), body)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleSetStyles(w http.ResponseWriter, r *http.Request) {
	var body theme.GlobalStyles
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.SetStyles(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), body)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleSetBranding(w http.ResponseWriter, r *http.Request) {
	var body theme.Branding
	if !decode(w, r, &body) {
		return
	}
	view, err := s.service.SetBranding(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), body)
	s.editResponse(w, r, view, err)
}

func (s *HTTPServer) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &body) {
		return
	}
	res, err := s.service.SaveEdit(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), body.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleEditPreview(w http.ResponseWriter, r *http.Request) {
	pdf := r.URL.Query().Get("format") == "pdf"
	res, err := s.service.EditPreview(r.Context(), sessionFrom(r), chi.URLParam(r, "editID"), pdf)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeFile(w, res)
}
