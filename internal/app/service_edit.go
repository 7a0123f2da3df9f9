package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"helpcenter/api/internal/export"
	"helpcenter/api/internal/gitrepo"
	"helpcenter/api/internal/rbac"
	"helpcenter/api/internal/session"
	"helpcenter/api/internal/theme"
	"helpcenter/api/internal/util"
)

// EditView is the state of an editing session after a request.
type EditView struct {
	ID        string                    `json:"id"`
	Theme     string                    `json:"theme"`
	Sections  []theme.PositionedSection `json:"sections"`
	Rendered  []theme.RenderedSection   `json:"rendered"`
	Styles    theme.GlobalStyles        `json:"styles"`
	Branding  theme.Branding            `json:"branding"`
	Drag      theme.DragState           `json:"drag"`
	Editor    theme.EditorState         `json:"editor"`
	Changed   bool                      `json:"changed"`
	SectionID string                    `json:"sectionId,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

func editView(cp session.EditCheckpoint, ts *theme.Session, changed bool) EditView {
	st := ts.State()
	return EditView{
		ID:        cp.ID,
		Theme:     st.Theme,
		Sections:  ts.Model().Snapshot(),
		Rendered:  ts.Render(),
		Styles:    st.Styles,
		Branding:  st.Branding,
		Drag:      st.Drag,
		Editor:    st.Editor,
		Changed:   changed,
		UpdatedAt: cp.UpdatedAt,
	}
}

func (s *Service) editLock(id string) *sync.Mutex {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	lock, ok := s.editLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.editLocks[id] = lock
	}
	return lock
}

func (s *Service) dropEditLock(id string) {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	delete(s.editLocks, id)
}

// forgetMissingEdit drops the lock of an id whose checkpoint is gone, so
// expired or unknown ids do not accumulate locks.
func (s *Service) forgetMissingEdit(id string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		s.dropEditLock(id)
	}
}

// StartEditInput picks what a new editing session starts from. An empty
// ThemeID continues the saved theme; a different ThemeID starts from that
// theme's catalog defaults. FromRevision starts from a stored revision.
type StartEditInput struct {
	ThemeID      string `json:"themeId"`
	FromRevision string `json:"fromRevision"`
}

func (s *Service) StartEdit(ctx context.Context, sess Session, in StartEditInput) (EditView, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return EditView{}, err
	}
	ts, err := s.editBase(ctx, sess, in)
	if err != nil {
		return EditView{}, err
	}

	cp := session.EditCheckpoint{
		ID:        util.NewID("edit"),
		TenantID:  sess.TenantID,
		UserID:    sess.UserID,
		State:     ts.State(),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.sessions.SaveEdit(ctx, cp, s.cfg.EditSessionTTL); err != nil {
		return EditView{}, fmt.Errorf("checkpoint edit session: %w", err)
	}
	s.logger.Info("edit session started", "tenant_id", sess.TenantID, "edit_id", cp.ID, "theme", cp.State.Theme)
	return editView(cp, ts, false), nil
}

func (s *Service) editBase(ctx context.Context, sess Session, in StartEditInput) (*theme.Session, error) {
	if rev := strings.TrimSpace(in.FromRevision); rev != "" {
		snap, _, err := s.history.At(sess.TenantID, rev)
		if err != nil {
			return nil, err
		}
		opts := append(s.themeOptions(sess.TenantID), theme.WithBranding(snap.Branding))
		return theme.OpenSession(ctx, s.registry, snap.Config, opts...)
	}
	saved, err := s.loadTheme(ctx, sess.TenantID)
	if err != nil {
		return nil, err
	}
	themeID := strings.TrimSpace(in.ThemeID)
	if themeID == "" || themeID == saved.ThemeID() {
		return saved, nil
	}
	return theme.NewSession(s.registry, themeID, s.themeOptions(sess.TenantID)...)
}

// resumeEdit loads a checkpoint of the caller's tenant and rebuilds it.
func (s *Service) resumeEdit(ctx context.Context, sess Session, id string) (session.EditCheckpoint, *theme.Session, error) {
	cp, err := s.sessions.LoadEdit(ctx, id)
	if err != nil {
		return session.EditCheckpoint{}, nil, err
	}
	if cp.TenantID != sess.TenantID {
		return session.EditCheckpoint{}, nil, errEditNotFound
	}
	ts, err := theme.ResumeSession(s.registry, cp.State, s.themeOptions(sess.TenantID)...)
	if err != nil {
		return session.EditCheckpoint{}, nil, err
	}
	return cp, ts, nil
}

// withEdit applies one gesture or edit to a session under its lock and
// checkpoints the result, also when fn fails: an editor save whose content
// write failed has already committed to the model.
func (s *Service) withEdit(ctx context.Context, sess Session, id string, fn func(*theme.Session) (bool, error)) (EditView, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return EditView{}, err
	}
	lock := s.editLock(id)
	lock.Lock()
	defer lock.Unlock()

	cp, ts, err := s.resumeEdit(ctx, sess, id)
	if err != nil {
		s.forgetMissingEdit(id, err)
		return EditView{}, err
	}
	changed, opErr := fn(ts)
	cp.State = ts.State()
	cp.UpdatedAt = s.now().UTC()
	if err := s.sessions.SaveEdit(ctx, cp, s.cfg.EditSessionTTL); err != nil {
		return EditView{}, fmt.Errorf("checkpoint edit session: %w", err)
	}
	if opErr != nil {
		return EditView{}, opErr
	}
	return editView(cp, ts, changed), nil
}

func (s *Service) GetEdit(ctx context.Context, sess Session, id string) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(*theme.Session) (bool, error) { return false, nil })
}

type AddSectionInput struct {
	TemplateID  string `json:"templateId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (s *Service) AddSection(ctx context.Context, sess Session, id string, in AddSectionInput) (EditView, error) {
	var added theme.Section
	view, err := s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		var err error
		if strings.TrimSpace(in.TemplateID) != "" {
			added, err = ts.AddTemplate(strings.TrimSpace(in.TemplateID))
		} else {
			added, err = ts.AddCustom(in.Title, in.Description, in.Icon)
		}
		return err == nil, err
	})
	view.SectionID = added.ID
	return view, err
}

func (s *Service) RemoveSection(ctx context.Context, sess Session, id, sectionID string) (EditView, error) {
	view, err := s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		if err := ts.Remove(sectionID); err != nil {
			return false, err
		}
		return true, nil
	})
	view.SectionID = sectionID
	return view, err
}

func (s *Service) MoveSection(ctx context.Context, sess Session, id, sectionID string, to int) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		return ts.Move(sectionID, to)
	})
}

func (s *Service) ToggleVisibility(ctx context.Context, sess Session, id, sectionID string) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		return ts.Model().ToggleVisibility(sectionID)
	})
}

func (s *Service) PatchSectionStyle(ctx context.Context, sess Session, id, sectionID string, patch theme.StyleOverride) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		return ts.Model().UpdateStyleOverride(sectionID, patch)
	})
}

func (s *Service) SetSectionIcon(ctx context.Context, sess Session, id, sectionID, icon string) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		before, _ := ts.Model().Section(sectionID)
		if err := ts.SetIcon(sectionID, icon); err != nil {
			return false, err
		}
		return before.Icon != icon, nil
	})
}

func (s *Service) SetStyles(ctx context.Context, sess Session, id string, styles theme.GlobalStyles) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		if err := ts.SetGlobals(styles); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Service) SetBranding(ctx context.Context, sess Session, id string, b theme.Branding) (EditView, error) {
	return s.withEdit(ctx, sess, id, func(ts *theme.Session) (bool, error) {
		if err := ts.SetBranding(b); err != nil {
			return false, err
		}
		return true, nil
	})
}

// DragInput carries the fields of every drag gesture; each gesture reads
// only the ones it needs.
type DragInput struct {
	SectionID  string                `json:"sectionId"`
	Pointer    theme.Point           `json:"pointer"`
	Candidates []theme.DropCandidate `json:"candidates"`
	Delta      int                   `json:"delta"`
}

// Drag applies one drag gesture: grab, hover, leave, step, release or cancel.
func (s *Service) Drag(ctx context.Context, sess Session, id, gesture string, in DragInput) (EditView, error) {
	var fn func(*theme.Session) (bool, error)
	switch gesture {
	case "grab":
		fn = func(ts *theme.Session) (bool, error) { return ts.Drag().Grab(in.SectionID) }
	case "hover":
		fn = func(ts *theme.Session) (bool, error) {
			_, ok := ts.Drag().Hover(in.Pointer, in.Candidates)
			return ok, nil
		}
	case "leave":
		fn = func(ts *theme.Session) (bool, error) {
			ts.Drag().Leave()
			return false, nil
		}
	case "step":
		fn = func(ts *theme.Session) (bool, error) {
			_, ok := ts.Drag().Step(in.Delta)
			return ok, nil
		}
	case "release":
		fn = func(ts *theme.Session) (bool, error) { return ts.Drag().Release() }
	case "cancel":
		fn = func(ts *theme.Session) (bool, error) { return ts.Drag().Cancel(), nil }
	default:
		return EditView{}, validationError("gesture", fmt.Sprintf("unknown drag gesture %q", gesture))
	}
	return s.withEdit(ctx, sess, id, fn)
}

// EditorInput carries the fields of every editor action.
type EditorInput struct {
	SectionID string         `json:"sectionId"`
	Mode      theme.EditMode `json:"mode"`
	Field     string         `json:"field"`
	Value     string         `json:"value"`
}

// Editor applies one editor action: open, field, save or cancel. Saving
// writes the section content to the tenant's content store.
func (s *Service) Editor(ctx context.Context, sess Session, id, action string, in EditorInput) (EditView, error) {
	var fn func(*theme.Session) (bool, error)
	switch action {
	case "open":
		fn = func(ts *theme.Session) (bool, error) { return false, ts.Editor().Open(in.SectionID, in.Mode) }
	case "field":
		fn = func(ts *theme.Session) (bool, error) { return false, ts.Editor().SetField(in.Field, in.Value) }
	case "save":
		fn = func(ts *theme.Session) (bool, error) {
			if err := ts.Editor().Save(ctx); err != nil {
				return false, err
			}
			return true, nil
		}
	case "cancel":
		fn = func(ts *theme.Session) (bool, error) { return false, ts.Editor().Cancel() }
	default:
		return EditView{}, validationError("action", fmt.Sprintf("unknown editor action %q", action))
	}
	return s.withEdit(ctx, sess, id, fn)
}

// SaveResult reports a theme save.
type SaveResult struct {
	Config   theme.Config      `json:"config"`
	Revision int64             `json:"revision"`
	History  *gitrepo.Revision `json:"history,omitempty"`
	Edit     EditView          `json:"edit"`
}

// SaveEdit persists the session as the tenant's theme. The document is
// captured when the call starts; the last save to reach the database wins.
func (s *Service) SaveEdit(ctx context.Context, sess Session, id, message string) (SaveResult, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return SaveResult{}, err
	}
	lock := s.editLock(id)
	lock.Lock()
	defer lock.Unlock()

	cp, ts, err := s.resumeEdit(ctx, sess, id)
	if err != nil {
		s.forgetMissingEdit(id, err)
		return SaveResult{}, err
	}

	content := tenantContent{store: s.store, tenantID: sess.TenantID}
	for _, sec := range ts.Model().Sections() {
		if err := content.Put(ctx, sec.ID, theme.ContentOf(sec)); err != nil {
			return SaveResult{}, &theme.PersistenceError{Op: "put section content", Err: err}
		}
	}
	gw := &tenantGateway{store: s.store, author: sess.UserName}
	cfg, err := theme.Save(ctx, gw, sess.TenantID, ts)
	if err != nil {
		return SaveResult{}, err
	}
	branding := ts.Branding()
	if err := s.store.SaveBranding(ctx, sess.TenantID, branding); err != nil {
		return SaveResult{}, &theme.PersistenceError{Op: "save branding", Err: err}
	}

	result := SaveResult{Config: cfg, Revision: gw.revision}
	if message = strings.TrimSpace(message); message == "" {
		message = "Update help center theme"
	}
	rev, recorded, err := s.history.Record(sess.TenantID, gitrepo.Snapshot{Config: cfg, Branding: branding}, sess.UserName, message)
	if err != nil {
		s.logger.Warn("theme history not recorded", "tenant_id", sess.TenantID, "err", err)
	} else if recorded {
		result.History = &rev
	}

	cp.UpdatedAt = s.now().UTC()
	if err := s.sessions.SaveEdit(ctx, cp, s.cfg.EditSessionTTL); err != nil {
		s.logger.Warn("edit session checkpoint not refreshed", "edit_id", id, "err", err)
	}
	s.logger.Info("theme saved", "tenant_id", sess.TenantID, "revision", gw.revision, "sections", len(cfg.Sections))
	result.Edit = editView(cp, ts, false)
	return result, nil
}

func (s *Service) DiscardEdit(ctx context.Context, sess Session, id string) error {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return err
	}
	lock := s.editLock(id)
	lock.Lock()
	defer lock.Unlock()

	cp, err := s.sessions.LoadEdit(ctx, id)
	if err != nil {
		s.forgetMissingEdit(id, err)
		return err
	}
	if cp.TenantID != sess.TenantID {
		return errEditNotFound
	}
	if err := s.sessions.DeleteEdit(ctx, id); err != nil {
		return err
	}
	s.dropEditLock(id)
	return nil
}

func (s *Service) EditPreview(ctx context.Context, sess Session, id string, pdf bool) (*export.Result, error) {
	if err := s.authorize(sess, rbac.ManageSettings); err != nil {
		return nil, err
	}
	_, ts, err := s.resumeEdit(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return s.renderPreview(ctx, sess, ts, pdf)
}
