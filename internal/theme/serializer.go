package theme

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// SectionState is the per-section entry of a stored configuration.
type SectionState struct {
	Visible bool `json:"visible"`
	Order   int  `json:"order"`
}

// Config is the persisted theme configuration document.
type Config struct {
	Theme    string                  `json:"theme"`
	Sections map[string]SectionState `json:"sections"`
	Styles   GlobalStyles            `json:"styles"`
}

// Validate checks the document against the registry before it is stored.
func (c Config) Validate(r *Registry) error {
	if _, ok := r.Variant(c.Theme); !ok {
		return invalid("theme", "unknown theme %q", c.Theme)
	}
	for id := range c.Sections {
		if strings.TrimSpace(id) == "" {
			return invalid("sections", "empty section id")
		}
	}
	return c.Styles.Validate()
}

// Content is the part of a section that lives outside the configuration
// document.
type Content struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Icon          string         `json:"icon"`
	StyleOverride *StyleOverride `json:"styleOverride,omitempty"`
}

// ContentOf extracts the stored content of s.
func ContentOf(s Section) Content {
	s = s.clone()
	return Content{Title: s.Title, Description: s.Description, Icon: s.Icon, StyleOverride: s.StyleOverride}
}

// ContentSource looks up section content by id.
type ContentSource interface {
	Get(ctx context.Context, sectionID string) (Content, bool, error)
}

// ContentStore is the read/write content keyspace of a tenant.
type ContentStore interface {
	ContentSource
	ContentWriter
}

// TemplateCatalog supplies fallback templates during deserialization.
type TemplateCatalog interface {
	TemplatesFor(themeID string) []SectionTemplate
}

// Serialize captures the order, visibility and global styles of m.
func Serialize(m *Model, styles GlobalStyles, themeID string) Config {
	cfg := Config{Theme: themeID, Sections: make(map[string]SectionState, m.Len()), Styles: styles}
	for _, ps := range m.Snapshot() {
		cfg.Sections[ps.ID] = SectionState{Visible: ps.Visible, Order: ps.Order}
	}
	return cfg
}

// Deserialize rebuilds a model from cfg. Content comes from content when
// present, otherwise from the catalog template the id was minted from,
// otherwise the id itself becomes the title. Sections are ordered by
// (order, id).
func Deserialize(ctx context.Context, cfg Config, catalog TemplateCatalog, content ContentSource, opts ...ModelOption) (*Model, error) {
	type entry struct {
		id    string
		state SectionState
	}
	entries := make([]entry, 0, len(cfg.Sections))
	for id, st := range cfg.Sections {
		entries = append(entries, entry{id: id, state: st})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].state.Order != entries[j].state.Order {
			return entries[i].state.Order < entries[j].state.Order
		}
		return entries[i].id < entries[j].id
	})

	var templates []SectionTemplate
	if catalog != nil {
		templates = catalog.TemplatesFor(cfg.Theme)
	}
	m := NewModel(opts...)
	for _, e := range entries {
		s, err := resolveSection(ctx, e.id, templates, content)
		if err != nil {
			return nil, err
		}
		s.Visible = e.state.Visible
		if err := m.insert(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func resolveSection(ctx context.Context, id string, templates []SectionTemplate, content ContentSource) (Section, error) {
	if content != nil {
		c, ok, err := content.Get(ctx, id)
		if err != nil {
			return Section{}, &PersistenceError{Op: "get section content", Err: err}
		}
		if ok {
			icon := c.Icon
			if icon == "" {
				icon = FallbackIcon
			}
			return Section{ID: id, Title: c.Title, Description: c.Description, Icon: icon, StyleOverride: c.StyleOverride}, nil
		}
	}
	if t, ok := templateFor(id, templates); ok {
		return sectionFromTemplate(id, t), nil
	}
	return Section{ID: id, Title: id, Icon: FallbackIcon}, nil
}

// templateFor matches id exactly or as "<template>-<suffix>", preferring
// the longest template id.
func templateFor(id string, templates []SectionTemplate) (SectionTemplate, bool) {
	var best SectionTemplate
	found := false
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
		if strings.HasPrefix(id, t.ID+"-") && len(t.ID) > len(best.ID) {
			best, found = t, true
		}
	}
	return best, found
}

// MemoryContentStore is a ContentStore held in process memory.
type MemoryContentStore struct {
	mu    sync.RWMutex
	items map[string]Content
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{items: make(map[string]Content)}
}

func (s *MemoryContentStore) Get(_ context.Context, sectionID string) (Content, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[sectionID]
	return c, ok, nil
}

func (s *MemoryContentStore) Put(_ context.Context, sectionID string, c Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sectionID] = c
	return nil
}
