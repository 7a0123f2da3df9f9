package theme

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Section is one live, reorderable help-center section.
type Section struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Icon          string         `json:"icon"`
	Visible       bool           `json:"visible"`
	StyleOverride *StyleOverride `json:"styleOverride,omitempty"`
}

func (s Section) clone() Section {
	if s.StyleOverride != nil {
		o := s.StyleOverride.clone()
		s.StyleOverride = &o
	}
	return s
}

// PositionedSection is a section together with its position in the order.
type PositionedSection struct {
	Section
	Order int `json:"order"`
}

type EventKind string

const (
	EventAdded      EventKind = "section.added"
	EventRemoved    EventKind = "section.removed"
	EventMoved      EventKind = "section.moved"
	EventVisibility EventKind = "section.visibility"
	EventContent    EventKind = "section.content"
	EventStyle      EventKind = "section.style"
)

// Event describes one successful change of the order model.
type Event struct {
	Kind      EventKind `json:"kind"`
	SectionID string    `json:"sectionId"`
	From      int       `json:"from,omitempty"`
	To        int       `json:"to,omitempty"`
}

type ModelOption func(*Model)

// WithClock sets the time source used to mint section ids.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) { m.now = now }
}

// WithObserver registers a callback invoked after every change.
func WithObserver(fn func(Event)) ModelOption {
	return func(m *Model) { m.observer = fn }
}

func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) { m.logger = logger }
}

// Model is the ordered collection of sections. It is not safe for
// concurrent use; callers serialize access per editing session.
type Model struct {
	sections []Section
	now      func() time.Time
	seq      uint64
	observer func(Event)
	logger   *slog.Logger
}

func NewModel(opts ...ModelOption) *Model {
	m := &Model{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewModelFromTemplates seeds a model with one visible section per
// template, keyed by the template id.
func NewModelFromTemplates(templates []SectionTemplate, opts ...ModelOption) (*Model, error) {
	m := NewModel(opts...)
	for _, t := range templates {
		if err := m.insert(sectionFromTemplate(t.ID, t)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func sectionFromTemplate(id string, t SectionTemplate) Section {
	icon := t.Icon
	if icon == "" {
		icon = FallbackIcon
	}
	return Section{ID: id, Title: t.Title, Description: t.Description, Icon: icon, Visible: true}
}

func (m *Model) insert(s Section) error {
	if s.ID == "" {
		return invalid("section.id", "required")
	}
	if m.IndexOf(s.ID) >= 0 {
		return invalid("section.id", "duplicate section %q", s.ID)
	}
	m.sections = append(m.sections, s.clone())
	return nil
}

func (m *Model) emit(e Event) {
	if m.observer != nil {
		m.observer(e)
	}
}

func (m *Model) missing(op, id string) error {
	m.logger.Warn("section not found", "op", op, "section_id", id)
	return notFound(id)
}

func (m *Model) Len() int { return len(m.sections) }

// IndexOf returns the position of id, or -1.
func (m *Model) IndexOf(id string) int {
	for i, s := range m.sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) Section(id string) (Section, bool) {
	i := m.IndexOf(id)
	if i < 0 {
		return Section{}, false
	}
	return m.sections[i].clone(), true
}

// Sections returns a copy of the sections in order.
func (m *Model) Sections() []Section {
	out := make([]Section, len(m.sections))
	for i, s := range m.sections {
		out[i] = s.clone()
	}
	return out
}

// Snapshot returns the sections with their zero-based order.
func (m *Model) Snapshot() []PositionedSection {
	out := make([]PositionedSection, len(m.sections))
	for i, s := range m.sections {
		out[i] = PositionedSection{Section: s.clone(), Order: i}
	}
	return out
}

// AddSection appends a visible section created from t and returns it.
// The id is the template id suffixed with the creation time, so adding the
// same template twice yields two distinct sections.
func (m *Model) AddSection(t SectionTemplate) Section {
	base := strings.TrimSpace(t.ID)
	if base == "" {
		base = "custom"
	}
	s := sectionFromTemplate(m.newID(base), t)
	m.sections = append(m.sections, s)
	m.emit(Event{Kind: EventAdded, SectionID: s.ID, To: len(m.sections) - 1})
	return s.clone()
}

func (m *Model) newID(base string) string {
	now := m.now()
	id := fmt.Sprintf("%s-%d", base, now.UnixMilli())
	if m.IndexOf(id) < 0 {
		return id
	}
	id = fmt.Sprintf("%s-%d", base, now.UnixNano())
	if m.IndexOf(id) < 0 {
		return id
	}
	for {
		m.seq++
		id = fmt.Sprintf("%s-%d-%d", base, now.UnixNano(), m.seq)
		if m.IndexOf(id) < 0 {
			return id
		}
	}
}

func (m *Model) RemoveSection(id string) error {
	i := m.IndexOf(id)
	if i < 0 {
		return m.missing("remove", id)
	}
	m.sections = append(m.sections[:i], m.sections[i+1:]...)
	m.emit(Event{Kind: EventRemoved, SectionID: id, From: i})
	return nil
}

// MoveSection moves id to position to, shifting the sections in between.
// to is clamped into range. It reports whether the order changed.
func (m *Model) MoveSection(id string, to int) (bool, error) {
	from := m.IndexOf(id)
	if from < 0 {
		return false, m.missing("move", id)
	}
	if to < 0 {
		to = 0
	}
	if last := len(m.sections) - 1; to > last {
		to = last
	}
	if from == to {
		return false, nil
	}
	s := m.sections[from]
	m.sections = append(m.sections[:from], m.sections[from+1:]...)
	m.sections = append(m.sections[:to], append([]Section{s}, m.sections[to:]...)...)
	m.emit(Event{Kind: EventMoved, SectionID: id, From: from, To: to})
	return true, nil
}

// ToggleVisibility flips the visible flag of id and returns the new value.
func (m *Model) ToggleVisibility(id string) (bool, error) {
	i := m.IndexOf(id)
	if i < 0 {
		return false, m.missing("toggle", id)
	}
	m.sections[i].Visible = !m.sections[i].Visible
	m.emit(Event{Kind: EventVisibility, SectionID: id, From: i, To: i})
	return m.sections[i].Visible, nil
}

// UpdateContent replaces title and description. It reports whether
// anything changed; identical values emit nothing.
func (m *Model) UpdateContent(id, title, description string) (bool, error) {
	i := m.IndexOf(id)
	if i < 0 {
		return false, m.missing("update_content", id)
	}
	s := &m.sections[i]
	if s.Title == title && s.Description == description {
		return false, nil
	}
	s.Title, s.Description = title, description
	m.emit(Event{Kind: EventContent, SectionID: id, From: i, To: i})
	return true, nil
}

// UpdateStyleOverride shallow-merges patch into the section override.
func (m *Model) UpdateStyleOverride(id string, patch StyleOverride) (bool, error) {
	i := m.IndexOf(id)
	if i < 0 {
		return false, m.missing("update_style", id)
	}
	s := &m.sections[i]
	var current StyleOverride
	if s.StyleOverride != nil {
		current = *s.StyleOverride
	}
	merged := current.Merge(patch)
	if merged.Equal(current) {
		return false, nil
	}
	if merged.IsZero() {
		s.StyleOverride = nil
	} else {
		s.StyleOverride = &merged
	}
	m.emit(Event{Kind: EventStyle, SectionID: id, From: i, To: i})
	return true, nil
}

// SetIcon replaces the icon identifier of id.
func (m *Model) SetIcon(id, icon string) (bool, error) {
	i := m.IndexOf(id)
	if i < 0 {
		return false, m.missing("set_icon", id)
	}
	if m.sections[i].Icon == icon {
		return false, nil
	}
	m.sections[i].Icon = icon
	m.emit(Event{Kind: EventContent, SectionID: id, From: i, To: i})
	return true, nil
}
