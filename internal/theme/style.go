package theme

import (
	"regexp"
	"strings"
)

// HeaderStyle holds the hero header tokens of a theme variant.
type HeaderStyle struct {
	BackgroundColor string `yaml:"backgroundColor" json:"backgroundColor"`
	TextColor       string `yaml:"textColor" json:"textColor"`
}

// SectionStyle is the full set of style tokens a section card renders with.
type SectionStyle struct {
	BackgroundColor      string `yaml:"backgroundColor" json:"backgroundColor"`
	HoverBackgroundColor string `yaml:"hoverBackgroundColor" json:"hoverBackgroundColor"`
	IconBackgroundColor  string `yaml:"iconBackgroundColor" json:"iconBackgroundColor"`
	IconColor            string `yaml:"iconColor" json:"iconColor"`
	TextColor            string `yaml:"textColor" json:"textColor"`
	DescriptionColor     string `yaml:"descriptionColor" json:"descriptionColor"`
}

// ThemeStyle is the immutable default style of a theme variant.
type ThemeStyle struct {
	HeaderText        string       `yaml:"headerText" json:"headerText"`
	SearchPlaceholder string       `yaml:"searchPlaceholder" json:"searchPlaceholder"`
	Header            HeaderStyle  `yaml:"header" json:"header"`
	Section           SectionStyle `yaml:"section" json:"section"`
}

// StyleOverride is a partial set of section style tokens. A nil field
// falls through to the theme default.
type StyleOverride struct {
	BackgroundColor     *string `json:"backgroundColor,omitempty"`
	TextColor           *string `json:"textColor,omitempty"`
	IconBackgroundColor *string `json:"iconBackgroundColor,omitempty"`
	IconColor           *string `json:"iconColor,omitempty"`
	DescriptionColor    *string `json:"descriptionColor,omitempty"`
}

// StyleFields lists the override keys accepted by SetStyleField.
var StyleFields = []string{"backgroundColor", "textColor", "iconBackgroundColor", "iconColor", "descriptionColor"}

// Str returns a pointer to s, for building overrides.
func Str(s string) *string { return &s }

func (o *StyleOverride) field(name string) (**string, bool) {
	switch name {
	case "backgroundColor":
		return &o.BackgroundColor, true
	case "textColor":
		return &o.TextColor, true
	case "iconBackgroundColor":
		return &o.IconBackgroundColor, true
	case "iconColor":
		return &o.IconColor, true
	case "descriptionColor":
		return &o.DescriptionColor, true
	}
	return nil, false
}

// Set assigns a single override field by its JSON name. An empty value
// clears the field.
func (o *StyleOverride) Set(name, value string) error {
	f, ok := o.field(name)
	if !ok {
		return invalid("style."+name, "unknown style field")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		*f = nil
		return nil
	}
	*f = Str(value)
	return nil
}

// IsZero reports whether no field is overridden.
func (o StyleOverride) IsZero() bool {
	return o.BackgroundColor == nil && o.TextColor == nil && o.IconBackgroundColor == nil &&
		o.IconColor == nil && o.DescriptionColor == nil
}

// Merge returns o with every field set in patch copied over it. A patch
// field holding an empty string clears the corresponding override.
func (o StyleOverride) Merge(patch StyleOverride) StyleOverride {
	out := o.clone()
	apply := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = nil
			return
		}
		*dst = Str(*src)
	}
	apply(&out.BackgroundColor, patch.BackgroundColor)
	apply(&out.TextColor, patch.TextColor)
	apply(&out.IconBackgroundColor, patch.IconBackgroundColor)
	apply(&out.IconColor, patch.IconColor)
	apply(&out.DescriptionColor, patch.DescriptionColor)
	return out
}

func (o StyleOverride) clone() StyleOverride {
	cp := func(s *string) *string {
		if s == nil {
			return nil
		}
		return Str(*s)
	}
	return StyleOverride{
		BackgroundColor:     cp(o.BackgroundColor),
		TextColor:           cp(o.TextColor),
		IconBackgroundColor: cp(o.IconBackgroundColor),
		IconColor:           cp(o.IconColor),
		DescriptionColor:    cp(o.DescriptionColor),
	}
}

// changes returns the patch that turns o into next: changed fields carry
// the new value, fields next dropped carry "" and the rest stay nil.
func (o StyleOverride) changes(next StyleOverride) StyleOverride {
	var patch StyleOverride
	for _, name := range StyleFields {
		from, _ := o.field(name)
		to, _ := next.field(name)
		dst, _ := patch.field(name)
		switch {
		case *to == nil && *from != nil:
			*dst = Str("")
		case *to != nil && (*from == nil || **from != **to):
			*dst = Str(**to)
		}
	}
	return patch
}

// Equal reports whether both overrides set the same fields to the same values.
func (o StyleOverride) Equal(other StyleOverride) bool {
	eq := func(a, b *string) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return *a == *b
	}
	return eq(o.BackgroundColor, other.BackgroundColor) &&
		eq(o.TextColor, other.TextColor) &&
		eq(o.IconBackgroundColor, other.IconBackgroundColor) &&
		eq(o.IconColor, other.IconColor) &&
		eq(o.DescriptionColor, other.DescriptionColor)
}

// Effective resolves the style a section renders with: each overridden
// field wins, every other field comes from the defaults.
func Effective(defaults SectionStyle, override *StyleOverride) SectionStyle {
	out := defaults
	if override == nil {
		return out
	}
	pick := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	pick(&out.BackgroundColor, override.BackgroundColor)
	pick(&out.TextColor, override.TextColor)
	pick(&out.IconBackgroundColor, override.IconBackgroundColor)
	pick(&out.IconColor, override.IconColor)
	pick(&out.DescriptionColor, override.DescriptionColor)
	return out
}

type ColorTokens struct {
	Primary    string `yaml:"primary" json:"primary"`
	Secondary  string `yaml:"secondary" json:"secondary"`
	Accent     string `yaml:"accent" json:"accent"`
	Background string `yaml:"background" json:"background"`
	Text       string `yaml:"text" json:"text"`
}

type TypographyTokens struct {
	FontFamily  string `yaml:"fontFamily" json:"fontFamily"`
	HeadingSize string `yaml:"headingSize" json:"headingSize"`
	BodySize    string `yaml:"bodySize" json:"bodySize"`
	LineHeight  string `yaml:"lineHeight" json:"lineHeight"`
}

type SpacingTokens struct {
	Container string `yaml:"container" json:"container"`
	Padding   string `yaml:"padding" json:"padding"`
	Gap       string `yaml:"gap" json:"gap"`
}

// GlobalStyles are the help-center wide design tokens stored with the
// theme configuration.
type GlobalStyles struct {
	Colors       ColorTokens      `yaml:"colors" json:"colors"`
	Typography   TypographyTokens `yaml:"typography" json:"typography"`
	Spacing      SpacingTokens    `yaml:"spacing" json:"spacing"`
	BorderRadius string           `yaml:"borderRadius" json:"borderRadius"`
}

var (
	hexColorRe  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	cssLengthRe = regexp.MustCompile(`^(?:0|\d*\.?\d+(?:px|rem|em|%|vh|vw|ch))$`)
	unitlessRe  = regexp.MustCompile(`^\d*\.?\d+(?:px|rem|em|%)?$`)
)

// Validate checks every token is present and well formed.
func (g GlobalStyles) Validate() error {
	colors := []struct{ name, v string }{
		{"primary", g.Colors.Primary},
		{"secondary", g.Colors.Secondary},
		{"accent", g.Colors.Accent},
		{"background", g.Colors.Background},
		{"text", g.Colors.Text},
	}
	for _, c := range colors {
		if !hexColorRe.MatchString(c.v) {
			return invalid("styles.colors."+c.name, "expected hex color, got %q", c.v)
		}
	}
	if strings.TrimSpace(g.Typography.FontFamily) == "" {
		return invalid("styles.typography.fontFamily", "required")
	}
	lengths := []struct{ name, v string }{
		{"typography.headingSize", g.Typography.HeadingSize},
		{"typography.bodySize", g.Typography.BodySize},
		{"spacing.container", g.Spacing.Container},
		{"spacing.padding", g.Spacing.Padding},
		{"spacing.gap", g.Spacing.Gap},
		{"borderRadius", g.BorderRadius},
	}
	for _, l := range lengths {
		if !cssLengthRe.MatchString(l.v) {
			return invalid("styles."+l.name, "expected css length, got %q", l.v)
		}
	}
	if !unitlessRe.MatchString(g.Typography.LineHeight) {
		return invalid("styles.typography.lineHeight", "expected number or length, got %q", g.Typography.LineHeight)
	}
	return nil
}
