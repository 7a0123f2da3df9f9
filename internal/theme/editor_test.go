package theme

import (
	"context"
	"errors"
	"testing"
)

type contentCall struct {
	id, title, description string
}

// recordingModel wraps a Model and records every UpdateContent call.
type recordingModel struct {
	*Model
	calls []contentCall
}

func (r *recordingModel) UpdateContent(id, title, description string) (bool, error) {
	r.calls = append(r.calls, contentCall{id, title, description})
	return r.Model.UpdateContent(id, title, description)
}

type stubDrag struct{ id string }

func (d stubDrag) ActiveID() (string, bool) { return d.id, d.id != "" }

type failingWriter struct{ err error }

func (f failingWriter) Put(context.Context, string, Content) error { return f.err }

func TestEditorCancelRecommitsOriginal(t *testing.T) {
	rec := &recordingModel{Model: seeded(t, "a", "b")}
	e := NewEditor(rec, nil, nil)
	if err := e.Open("a", EditContent); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := e.SetField("title", "X"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if s, _ := rec.Section("a"); s.Title != "A" {
		t.Fatalf("draft leaked into model: %q", s.Title)
	}
	if err := e.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s, _ := rec.Section("a"); s.Title != "A" {
		t.Fatalf("expected original title, got %q", s.Title)
	}
	if len(rec.calls) != 1 || rec.calls[0] != (contentCall{"a", "A", ""}) {
		t.Fatalf("expected re-commit of original values, got %+v", rec.calls)
	}
	if _, editing := e.EditingID(); editing {
		t.Fatalf("editor still open")
	}
}

func TestEditorOpenSecondCancelsFirst(t *testing.T) {
	rec := &recordingModel{Model: seeded(t, "a", "b")}
	e := NewEditor(rec, nil, nil)
	e.Open("a", EditContent)
	e.SetField("title", "draft")
	if err := e.Open("b", EditContent); err != nil {
		t.Fatalf("open b: %v", err)
	}
	if id, _ := e.EditingID(); id != "b" {
		t.Fatalf("expected b editing, got %q", id)
	}
	if len(rec.calls) != 1 || rec.calls[0].id != "a" || rec.calls[0].title != "A" {
		t.Fatalf("expected original re-commit for a, got %+v", rec.calls)
	}
}

func TestEditorSaveCommitsAndWritesContent(t *testing.T) {
	m := seeded(t, "a")
	store := NewMemoryContentStore()
	e := NewEditor(m, nil, store)
	e.Open("a", EditStyle)
	e.SetField("title", " Alpha ")
	e.SetField("description", "first")
	e.SetField("textColor", "text-red-600")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, _ := m.Section("a")
	if s.Title != "Alpha" || s.Description != "first" || s.StyleOverride == nil || *s.StyleOverride.TextColor != "text-red-600" {
		t.Fatalf("unexpected section %+v", s)
	}
	c, ok, _ := store.Get(context.Background(), "a")
	if !ok || c.Title != "Alpha" || c.StyleOverride == nil {
		t.Fatalf("content not written: %+v ok=%v", c, ok)
	}
	if _, editing := e.EditingID(); editing {
		t.Fatalf("expected viewing after save")
	}
}

func TestEditorSaveClearsRemovedStyleFields(t *testing.T) {
	m := seeded(t, "a")
	m.UpdateStyleOverride("a", StyleOverride{TextColor: Str("red"), IconColor: Str("green")})
	e := NewEditor(m, nil, nil)
	e.Open("a", EditStyle)
	e.SetField("textColor", "")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, _ := m.Section("a")
	if s.StyleOverride == nil || s.StyleOverride.TextColor != nil || *s.StyleOverride.IconColor != "green" {
		t.Fatalf("unexpected override %+v", s.StyleOverride)
	}
}

func TestEditorSaveKeepsOverridesSetWhileOpen(t *testing.T) {
	m := seeded(t, "a")
	m.UpdateStyleOverride("a", StyleOverride{IconColor: Str("green")})
	e := NewEditor(m, nil, nil)
	if err := e.Open("a", EditStyle); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := m.UpdateStyleOverride("a", StyleOverride{TextColor: Str("red"), IconColor: Str("blue")}); err != nil {
		t.Fatalf("direct style update: %v", err)
	}
	if err := e.SetField("backgroundColor", "#fff"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, _ := m.Section("a")
	o := s.StyleOverride
	if o == nil || o.TextColor == nil || *o.TextColor != "red" {
		t.Fatalf("textColor set while editing was erased: %+v", o)
	}
	if o.IconColor == nil || *o.IconColor != "blue" {
		t.Fatalf("untouched draft field overwrote iconColor: %+v", o)
	}
	if o.BackgroundColor == nil || *o.BackgroundColor != "#fff" {
		t.Fatalf("draft change not committed: %+v", o)
	}
}

func TestStyleOverrideChanges(t *testing.T) {
	from := StyleOverride{TextColor: Str("red"), IconColor: Str("green")}
	to := StyleOverride{IconColor: Str("blue"), DescriptionColor: Str("gray")}
	got := from.changes(to)
	want := StyleOverride{TextColor: Str(""), IconColor: Str("blue"), DescriptionColor: Str("gray")}
	if !got.Equal(want) {
		t.Fatalf("changes = %+v, want %+v", got, want)
	}
	if !from.changes(from).IsZero() {
		t.Fatalf("expected no changes against itself")
	}
}

func TestEditorSaveBlankTitleKeepsEditing(t *testing.T) {
	m := seeded(t, "a")
	e := NewEditor(m, nil, nil)
	e.Open("a", EditContent)
	e.SetField("title", "   ")
	var verr *ValidationError
	if err := e.Save(context.Background()); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, editing := e.EditingID(); !editing {
		t.Fatalf("editor should stay open")
	}
	if s, _ := m.Section("a"); s.Title != "A" {
		t.Fatalf("model mutated: %q", s.Title)
	}
}

func TestEditorSaveContentFailureIsPersistenceError(t *testing.T) {
	m := seeded(t, "a")
	e := NewEditor(m, nil, failingWriter{err: errors.New("boom")})
	e.Open("a", EditContent)
	e.SetField("title", "New")
	err := e.Save(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if s, _ := m.Section("a"); s.Title != "New" {
		t.Fatalf("local commit should stand, got %q", s.Title)
	}
}

func TestEditorRejectsActiveDragSource(t *testing.T) {
	m := seeded(t, "a", "b")
	e := NewEditor(m, stubDrag{id: "a"}, nil)
	if err := e.Open("a", EditContent); !errors.Is(err, ErrInteractionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := e.Open("b", EditContent); err != nil {
		t.Fatalf("open other: %v", err)
	}
}

func TestEditorFieldWithoutOpen(t *testing.T) {
	e := NewEditor(seeded(t, "a"), nil, nil)
	if err := e.SetField("title", "x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
	if err := e.Save(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
}
