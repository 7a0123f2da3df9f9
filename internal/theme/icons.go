package theme

import (
	"sort"
	"strings"
	"unicode"
)

// FallbackIcon is rendered for unknown icon identifiers and is the default
// for custom sections.
const FallbackIcon = "Layout"

// Glyph is a renderable icon.
type Glyph struct {
	ID       string `json:"id"`
	CSSClass string `json:"cssClass"`
}

// IconResolver maps icon identifiers to glyphs. Unknown identifiers
// resolve to a fallback glyph.
type IconResolver interface {
	Resolve(id string) Glyph
	Known(id string) bool
}

// StaticIcons is an IconResolver over a fixed set of identifiers.
type StaticIcons struct {
	glyphs   map[string]Glyph
	fallback Glyph
}

var builtinIcons = []string{
	"AlertCircle", "AlertTriangle", "BookOpen", "Box", "Cloud", "Code",
	"CreditCard", "Download", "FileText", "GitBranch", "HelpCircle", "Layout",
	"MessageSquare", "Monitor", "Package", "Phone", "Puzzle", "RefreshCw",
	"Ruler", "Shield", "ShoppingCart", "Terminal", "Truck", "User", "Zap",
}

// NewStaticIcons builds a resolver over ids. The fallback id is always known.
func NewStaticIcons(ids []string, fallback string) *StaticIcons {
	s := &StaticIcons{glyphs: make(map[string]Glyph, len(ids)+1)}
	for _, id := range ids {
		s.glyphs[id] = Glyph{ID: id, CSSClass: cssClass(id)}
	}
	s.fallback = Glyph{ID: fallback, CSSClass: cssClass(fallback)}
	s.glyphs[fallback] = s.fallback
	return s
}

// DefaultIcons returns the resolver for the built-in icon set.
func DefaultIcons() *StaticIcons {
	return NewStaticIcons(builtinIcons, FallbackIcon)
}

func (s *StaticIcons) Resolve(id string) Glyph {
	if g, ok := s.glyphs[id]; ok {
		return g
	}
	return s.fallback
}

func (s *StaticIcons) Known(id string) bool {
	_, ok := s.glyphs[id]
	return ok
}

// IDs returns the known identifiers in sorted order.
func (s *StaticIcons) IDs() []string {
	out := make([]string, 0, len(s.glyphs))
	for id := range s.glyphs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// cssClass turns "ShoppingCart" into "icon-shopping-cart".
func cssClass(id string) string {
	var b strings.Builder
	b.WriteString("icon")
	for i, r := range id {
		if unicode.IsUpper(r) || i == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
