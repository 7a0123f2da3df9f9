package theme

import (
	"context"
	"fmt"
	"strings"
)

// Session ties one order model to its drag controller and editor and
// enforces that a section is never dragged and edited at once.
type Session struct {
	registry *Registry
	themeID  string
	style    ThemeStyle
	globals  GlobalStyles
	model    *Model
	drag     *DragController
	editor   *Editor
}

// SessionState is a checkpoint of a session, including any gesture or
// edit in flight.
type SessionState struct {
	Theme    string       `json:"theme"`
	Sections []Section    `json:"sections"`
	Styles   GlobalStyles `json:"styles"`
	Branding Branding     `json:"branding"`
	Drag     DragState    `json:"drag"`
	Editor   EditorState  `json:"editor"`
}

// Branding is the tenant copy shown in the help-center header.
type Branding struct {
	HeaderText        string `json:"headerText"`
	SearchPlaceholder string `json:"searchPlaceholder"`
}

const maxBrandingLen = 120

// Validate rejects blank or overlong copy.
func (b Branding) Validate() error {
	if strings.TrimSpace(b.HeaderText) == "" {
		return invalid("headerText", "required")
	}
	if strings.TrimSpace(b.SearchPlaceholder) == "" {
		return invalid("searchPlaceholder", "required")
	}
	if len(b.HeaderText) > maxBrandingLen || len(b.SearchPlaceholder) > maxBrandingLen {
		return invalid("branding", "must be at most %d characters", maxBrandingLen)
	}
	return nil
}

type sessionOptions struct {
	content   ContentStore
	branding  *Branding
	modelOpts []ModelOption
}

type SessionOption func(*sessionOptions)

// WithContentStore sets where saved section content is written and read.
func WithContentStore(cs ContentStore) SessionOption {
	return func(o *sessionOptions) { o.content = cs }
}

// WithBranding replaces the theme default header copy.
func WithBranding(b Branding) SessionOption {
	return func(o *sessionOptions) { o.branding = &b }
}

func WithModelOptions(opts ...ModelOption) SessionOption {
	return func(o *sessionOptions) { o.modelOpts = append(o.modelOpts, opts...) }
}

func buildOptions(opts []SessionOption) sessionOptions {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newSession(reg *Registry, v Variant, globals GlobalStyles, m *Model, o sessionOptions) *Session {
	s := &Session{registry: reg, themeID: v.ID, style: v.Style, globals: globals, model: m}
	if o.branding != nil {
		s.style.HeaderText = o.branding.HeaderText
		s.style.SearchPlaceholder = o.branding.SearchPlaceholder
	}
	var writer ContentWriter
	if o.content != nil {
		writer = o.content
	}
	s.editor = NewEditor(m, nil, writer)
	s.drag = NewDragController(m, s.editor)
	s.editor.drag = s.drag
	return s
}

func lookupVariant(reg *Registry, themeID string) (Variant, error) {
	v, ok := reg.Variant(themeID)
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownTheme, themeID)
	}
	return v, nil
}

// NewSession starts a session on the default catalog sections of themeID.
func NewSession(reg *Registry, themeID string, opts ...SessionOption) (*Session, error) {
	v, err := lookupVariant(reg, themeID)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	m, err := NewModelFromTemplates(v.Templates, o.modelOpts...)
	if err != nil {
		return nil, err
	}
	return newSession(reg, v, v.Globals, m, o), nil
}

// OpenSession starts a session from a stored configuration.
func OpenSession(ctx context.Context, reg *Registry, cfg Config, opts ...SessionOption) (*Session, error) {
	v, err := lookupVariant(reg, cfg.Theme)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	var source ContentSource
	if o.content != nil {
		source = o.content
	}
	m, err := Deserialize(ctx, cfg, reg, source, o.modelOpts...)
	if err != nil {
		return nil, err
	}
	return newSession(reg, v, cfg.Styles, m, o), nil
}

// ResumeSession rebuilds a session from a checkpoint. Gestures or edits
// that point at sections no longer present are dropped.
func ResumeSession(reg *Registry, st SessionState, opts ...SessionOption) (*Session, error) {
	v, err := lookupVariant(reg, st.Theme)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	m := NewModel(o.modelOpts...)
	for _, sec := range st.Sections {
		if err := m.insert(sec); err != nil {
			return nil, err
		}
	}
	if st.Branding.HeaderText != "" {
		o.branding = &st.Branding
	}
	s := newSession(reg, v, st.Styles, m, o)
	s.editor.restore(st.Editor)
	s.drag.restore(st.Drag)
	if id, ok := s.drag.ActiveID(); ok {
		if editing, ok := s.editor.EditingID(); ok && editing == id {
			s.drag.Cancel()
		}
	}
	return s, nil
}

func (s *Session) ThemeID() string { return s.themeID }
func (s *Session) Style() ThemeStyle { return s.style }
func (s *Session) Globals() GlobalStyles { return s.globals }
func (s *Session) Model() *Model { return s.model }
func (s *Session) Drag() *DragController { return s.drag }
func (s *Session) Editor() *Editor { return s.editor }
func (s *Session) Config() Config { return Serialize(s.model, s.globals, s.themeID) }
func (s *Session) Templates() []SectionTemplate { return s.registry.TemplatesFor(s.themeID) }

func (s *Session) State() SessionState {
	return SessionState{
		Theme:    s.themeID,
		Sections: s.model.Sections(),
		Styles:   s.globals,
		Branding: s.Branding(),
		Drag:     s.drag.State(),
		Editor:   s.editor.State(),
	}
}

func (s *Session) Branding() Branding {
	return Branding{HeaderText: s.style.HeaderText, SearchPlaceholder: s.style.SearchPlaceholder}
}

// SetBranding replaces the header copy after validating it.
func (s *Session) SetBranding(b Branding) error {
	b.HeaderText = strings.TrimSpace(b.HeaderText)
	b.SearchPlaceholder = strings.TrimSpace(b.SearchPlaceholder)
	if err := b.Validate(); err != nil {
		return err
	}
	s.style.HeaderText, s.style.SearchPlaceholder = b.HeaderText, b.SearchPlaceholder
	return nil
}

// SetGlobals replaces the global style tokens after validating them.
func (s *Session) SetGlobals(g GlobalStyles) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.globals = g
	return nil
}

// AddTemplate appends a section created from a catalog template.
func (s *Session) AddTemplate(templateID string) (Section, error) {
	t, ok := s.registry.Template(s.themeID, templateID)
	if !ok {
		return Section{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}
	return s.model.AddSection(t), nil
}

// AddCustom appends a section with free-form content.
func (s *Session) AddCustom(title, description, icon string) (Section, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Section{}, invalid("title", "required")
	}
	if icon == "" {
		icon = FallbackIcon
	}
	if !s.registry.Icons().Known(icon) {
		return Section{}, invalid("icon", "unknown icon %q", icon)
	}
	return s.model.AddSection(SectionTemplate{
		ID:          "custom",
		Title:       title,
		Description: strings.TrimSpace(description),
		Icon:        icon,
	}), nil
}

// Move repositions a section. The section being dragged can only move
// through its gesture.
func (s *Session) Move(id string, to int) (bool, error) {
	if active, ok := s.drag.ActiveID(); ok && active == id {
		return false, ErrInteractionConflict
	}
	return s.model.MoveSection(id, to)
}

// Remove deletes a section and ends an edit that targets it. The section
// being dragged cannot be removed.
func (s *Session) Remove(id string) error {
	if active, ok := s.drag.ActiveID(); ok && active == id {
		return ErrInteractionConflict
	}
	if err := s.model.RemoveSection(id); err != nil {
		return err
	}
	if editing, ok := s.editor.EditingID(); ok && editing == id {
		s.editor.state = EditorState{}
	}
	return nil
}

// SetIcon re-selects the icon of a section.
func (s *Session) SetIcon(id, icon string) error {
	if !s.registry.Icons().Known(icon) {
		return invalid("icon", "unknown icon %q", icon)
	}
	_, err := s.model.SetIcon(id, icon)
	return err
}

// EffectiveStyle resolves the style section id renders with.
func (s *Session) EffectiveStyle(id string) (SectionStyle, error) {
	sec, ok := s.model.Section(id)
	if !ok {
		return SectionStyle{}, notFound(id)
	}
	return Effective(s.style.Section, sec.StyleOverride), nil
}

// RenderedSection is a visible section ready for display. Order is its
// position among the visible sections, not in the model.
type RenderedSection struct {
	Section
	Order int          `json:"order"`
	Style SectionStyle `json:"style"`
	Glyph Glyph        `json:"glyph"`
}

// Render lists the visible sections in order with their effective style.
func (s *Session) Render() []RenderedSection {
	icons := s.registry.Icons()
	out := make([]RenderedSection, 0, s.model.Len())
	for _, ps := range s.model.Snapshot() {
		if !ps.Visible {
			continue
		}
		out = append(out, RenderedSection{
			Section: ps.Section,
			Order:   len(out),
			Style:   Effective(s.style.Section, ps.StyleOverride),
			Glyph:   icons.Resolve(ps.Icon),
		})
	}
	return out
}
