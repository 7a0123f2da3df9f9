package theme

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// SectionTemplate is an immutable catalog entry sections are created from.
type SectionTemplate struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
}

// Variant is one selectable theme: its default style, global tokens and
// section catalog.
type Variant struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Style       ThemeStyle        `yaml:"style" json:"style"`
	Globals     GlobalStyles      `yaml:"globals" json:"globals"`
	Templates   []SectionTemplate `yaml:"templates" json:"templates"`
}

type catalogFile struct {
	Variants []Variant `yaml:"variants"`
}

// Registry is the read-only catalog of theme variants.
type Registry struct {
	order    []string
	variants map[string]Variant
	icons    IconResolver
}

// LoadRegistry parses a YAML catalog. Every template icon must be known to
// icons.
func LoadRegistry(data []byte, icons IconResolver) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Variants) == 0 {
		return nil, invalid("variants", "catalog is empty")
	}
	r := &Registry{variants: make(map[string]Variant, len(file.Variants)), icons: icons}
	for _, v := range file.Variants {
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" {
			return nil, invalid("variants.id", "required")
		}
		if _, dup := r.variants[v.ID]; dup {
			return nil, invalid("variants.id", "duplicate variant %q", v.ID)
		}
		if err := v.Globals.Validate(); err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.ID, err)
		}
		seen := make(map[string]bool, len(v.Templates))
		for _, t := range v.Templates {
			if t.ID == "" || strings.TrimSpace(t.Title) == "" {
				return nil, invalid("templates", "variant %s has a template without id or title", v.ID)
			}
			if seen[t.ID] {
				return nil, invalid("templates.id", "variant %s repeats template %q", v.ID, t.ID)
			}
			if !icons.Known(t.Icon) {
				return nil, invalid("templates.icon", "variant %s template %s uses unknown icon %q", v.ID, t.ID, t.Icon)
			}
			seen[t.ID] = true
		}
		r.order = append(r.order, v.ID)
		r.variants[v.ID] = v
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the registry built from the embedded catalog.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		r, err := LoadRegistry(catalogYAML, DefaultIcons())
		if err != nil {
			panic(fmt.Sprintf("embedded theme catalog: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Icons returns the resolver the registry validated against.
func (r *Registry) Icons() IconResolver { return r.icons }

// Variants lists variants in catalog order.
func (r *Registry) Variants() []Variant {
	out := make([]Variant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.variants[id])
	}
	return out
}

func (r *Registry) Variant(themeID string) (Variant, bool) {
	v, ok := r.variants[themeID]
	return v, ok
}

// TemplatesFor returns a copy of the catalog of themeID, or nil for an
// unknown theme.
func (r *Registry) TemplatesFor(themeID string) []SectionTemplate {
	v, ok := r.variants[themeID]
	if !ok {
		return nil
	}
	out := make([]SectionTemplate, len(v.Templates))
	copy(out, v.Templates)
	return out
}

func (r *Registry) Template(themeID, templateID string) (SectionTemplate, bool) {
	for _, t := range r.TemplatesFor(themeID) {
		if t.ID == templateID {
			return t, true
		}
	}
	return SectionTemplate{}, false
}

// StyleFor returns the default style of themeID.
func (r *Registry) StyleFor(themeID string) (ThemeStyle, error) {
	v, ok := r.variants[themeID]
	if !ok {
		return ThemeStyle{}, fmt.Errorf("%w: %q", ErrUnknownTheme, themeID)
	}
	return v.Style, nil
}
