package theme

import (
	"context"
	"errors"
	"strings"
)

type EditMode string

const (
	EditContent EditMode = "content"
	EditStyle   EditMode = "style"
)

// EditorState is the serializable state of the section editor.
type EditorState struct {
	Editing             bool          `json:"editing"`
	SectionID           string        `json:"sectionId,omitempty"`
	Mode                EditMode      `json:"mode,omitempty"`
	DraftTitle          string        `json:"draftTitle,omitempty"`
	DraftDescription    string        `json:"draftDescription,omitempty"`
	DraftStyle          StyleOverride `json:"draftStyle"`
	OriginalTitle       string        `json:"originalTitle,omitempty"`
	OriginalDescription string        `json:"originalDescription,omitempty"`
	OriginalStyle       StyleOverride `json:"originalStyle"`
}

type contentCommitter interface {
	Section(id string) (Section, bool)
	UpdateContent(id, title, description string) (bool, error)
	UpdateStyleOverride(id string, patch StyleOverride) (bool, error)
}

type dragGuard interface {
	ActiveID() (string, bool)
}

// ContentWriter receives the content of a section after an edit is saved.
type ContentWriter interface {
	Put(ctx context.Context, sectionID string, c Content) error
}

// Editor holds the draft of the one section being edited. Drafts never
// touch the model until Save.
type Editor struct {
	model   contentCommitter
	drag    dragGuard
	content ContentWriter
	state   EditorState
}

func NewEditor(model contentCommitter, drag dragGuard, content ContentWriter) *Editor {
	return &Editor{model: model, drag: drag, content: content}
}

func (e *Editor) State() EditorState { return e.state }

func (e *Editor) restore(s EditorState) {
	if !s.Editing {
		e.state = EditorState{}
		return
	}
	if _, ok := e.model.Section(s.SectionID); !ok {
		e.state = EditorState{}
		return
	}
	e.state = s
}

// EditingID returns the section being edited, if any.
func (e *Editor) EditingID() (string, bool) {
	if !e.state.Editing {
		return "", false
	}
	return e.state.SectionID, true
}

// Open starts editing id. Opening while another section is being edited
// cancels that edit first. Reopening the same section keeps its draft.
func (e *Editor) Open(id string, mode EditMode) error {
	if mode == "" {
		mode = EditContent
	}
	if mode != EditContent && mode != EditStyle {
		return invalid("mode", "unknown edit mode %q", mode)
	}
	if e.drag != nil {
		if active, ok := e.drag.ActiveID(); ok && active == id {
			return ErrInteractionConflict
		}
	}
	s, ok := e.model.Section(id)
	if !ok {
		return notFound(id)
	}
	if e.state.Editing {
		if e.state.SectionID == id {
			e.state.Mode = mode
			return nil
		}
		if err := e.Cancel(); err != nil {
			return err
		}
	}
	var original StyleOverride
	if s.StyleOverride != nil {
		original = s.StyleOverride.clone()
	}
	e.state = EditorState{
		Editing:             true,
		SectionID:           id,
		Mode:                mode,
		DraftTitle:          s.Title,
		DraftDescription:    s.Description,
		DraftStyle:          original.clone(),
		OriginalTitle:       s.Title,
		OriginalDescription: s.Description,
		OriginalStyle:       original,
	}
	return nil
}

// SetField updates one draft field: "title", "description" or one of
// StyleFields.
func (e *Editor) SetField(field, value string) error {
	if !e.state.Editing {
		return ErrNotEditing
	}
	switch field {
	case "title":
		e.state.DraftTitle = value
	case "description":
		e.state.DraftDescription = value
	default:
		return e.state.DraftStyle.Set(field, value)
	}
	return nil
}

// Save commits the draft to the model, hands the resulting content to the
// content writer and returns to viewing. A blank title aborts the save and
// keeps the editor open.
func (e *Editor) Save(ctx context.Context) error {
	if !e.state.Editing {
		return ErrNotEditing
	}
	title := strings.TrimSpace(e.state.DraftTitle)
	if title == "" {
		return invalid("title", "required")
	}
	st := e.state
	e.state = EditorState{}

	if _, err := e.model.UpdateContent(st.SectionID, title, strings.TrimSpace(st.DraftDescription)); err != nil {
		return err
	}
	if st.Mode == EditStyle {
		// only fields the draft changed since Open are written, so
		// overrides set elsewhere in the meantime survive
		patch := st.OriginalStyle.changes(st.DraftStyle)
		if !patch.IsZero() {
			if _, err := e.model.UpdateStyleOverride(st.SectionID, patch); err != nil {
				return err
			}
		}
	}
	if e.content == nil {
		return nil
	}
	saved, ok := e.model.Section(st.SectionID)
	if !ok {
		return notFound(st.SectionID)
	}
	if err := e.content.Put(ctx, saved.ID, ContentOf(saved)); err != nil {
		return &PersistenceError{Op: "put section content", Err: err}
	}
	return nil
}

// Cancel discards the draft and re-commits the original title and
// description.
func (e *Editor) Cancel() error {
	if !e.state.Editing {
		return nil
	}
	st := e.state
	e.state = EditorState{}
	// a section removed while being edited has nothing to restore
	if _, err := e.model.UpdateContent(st.SectionID, st.OriginalTitle, st.OriginalDescription); err != nil && !errors.Is(err, ErrSectionNotFound) {
		return err
	}
	return nil
}
