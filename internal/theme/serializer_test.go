package theme

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type errSource struct{}

func (errSource) Get(context.Context, string) (Content, bool, error) {
	return Content{}, false, errors.New("store down")
}

func TestRoundTripPreservesOrderAndVisibility(t *testing.T) {
	reg := DefaultRegistry()
	ctx := context.Background()
	build := map[string]func(t *testing.T) *Model{
		"empty": func(t *testing.T) *Model { return NewModel() },
		"single": func(t *testing.T) *Model {
			m, _ := NewModelFromTemplates(reg.TemplatesFor("ecommerce")[:1])
			return m
		},
		"many with hidden": func(t *testing.T) *Model {
			m, _ := NewModelFromTemplates(reg.TemplatesFor("ecommerce"))
			m.ToggleVisibility("returns")
			m.ToggleVisibility("account")
			m.MoveSection("size-guides", 0)
			m.AddSection(SectionTemplate{ID: "custom", Title: "Warranty", Icon: "Shield"})
			m.AddSection(SectionTemplate{ID: "payment", Title: "Payment Methods", Icon: "CreditCard"})
			return m
		},
	}
	for name, mk := range build {
		t.Run(name, func(t *testing.T) {
			m := mk(t)
			store := NewMemoryContentStore()
			for _, s := range m.Sections() {
				if strings.HasPrefix(s.ID, "custom-") {
					store.Put(ctx, s.ID, ContentOf(s))
				}
			}
			cfg := Serialize(m, reg.Variants()[0].Globals, "ecommerce")
			back, err := Deserialize(ctx, cfg, reg, store)
			if err != nil {
				t.Fatalf("deserialize: %v", err)
			}
			want, got := m.Sections(), back.Sections()
			if len(want) != len(got) {
				t.Fatalf("length %d, want %d", len(got), len(want))
			}
			for i := range want {
				if want[i].ID != got[i].ID || want[i].Visible != got[i].Visible || want[i].Title != got[i].Title {
					t.Fatalf("section %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestDeserializeToleratesCollidingOrders(t *testing.T) {
	cfg := Config{Theme: "tech-stack", Sections: map[string]SectionState{
		"sdk":             {Visible: true, Order: 4},
		"api-docs":        {Visible: true, Order: 1},
		"changelog":       {Visible: false, Order: 1},
		"getting-started": {Visible: true, Order: -2},
	}}
	m, err := Deserialize(context.Background(), cfg, DefaultRegistry(), nil)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got := strings.Join(ids(m), ","); got != "getting-started,api-docs,changelog,sdk" {
		t.Fatalf("unexpected order %s", got)
	}
	assertOrders(t, m)
	if s, _ := m.Section("changelog"); s.Visible || s.Title != "Changelog" {
		t.Fatalf("unexpected changelog section %+v", s)
	}
}

func TestDeserializeFallbacks(t *testing.T) {
	cfg := Config{Theme: "ecommerce", Sections: map[string]SectionState{
		"size-guides-1700000000000": {Visible: true, Order: 0},
		"mystery":                   {Visible: true, Order: 1},
	}}
	m, err := Deserialize(context.Background(), cfg, DefaultRegistry(), NewMemoryContentStore())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if s, _ := m.Section("size-guides-1700000000000"); s.Title != "Size Guides" || s.Icon != "Ruler" {
		t.Fatalf("expected template fallback, got %+v", s)
	}
	if s, _ := m.Section("mystery"); s.Title != "mystery" || s.Icon != FallbackIcon {
		t.Fatalf("expected id fallback, got %+v", s)
	}
}

func TestDeserializePrefersStoredContent(t *testing.T) {
	store := NewMemoryContentStore()
	store.Put(context.Background(), "orders", Content{Title: "Shipping", Icon: "Truck", StyleOverride: &StyleOverride{TextColor: Str("red")}})
	cfg := Config{Theme: "ecommerce", Sections: map[string]SectionState{"orders": {Visible: true}}}
	m, err := Deserialize(context.Background(), cfg, DefaultRegistry(), store)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	s, _ := m.Section("orders")
	if s.Title != "Shipping" || s.Icon != "Truck" || s.StyleOverride == nil {
		t.Fatalf("expected stored content, got %+v", s)
	}
}

func TestDeserializeContentFailure(t *testing.T) {
	cfg := Config{Theme: "ecommerce", Sections: map[string]SectionState{"orders": {Visible: true}}}
	_, err := Deserialize(context.Background(), cfg, DefaultRegistry(), errSource{})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestSerializeShape(t *testing.T) {
	m := seeded(t, "a", "b")
	m.ToggleVisibility("a")
	cfg := Serialize(m, GlobalStyles{BorderRadius: "4px"}, "ecommerce")
	if cfg.Theme != "ecommerce" || cfg.Styles.BorderRadius != "4px" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Sections["a"] != (SectionState{Visible: false, Order: 0}) || cfg.Sections["b"] != (SectionState{Visible: true, Order: 1}) {
		t.Fatalf("unexpected sections %+v", cfg.Sections)
	}
}

func TestConfigValidate(t *testing.T) {
	reg := DefaultRegistry()
	v, _ := reg.Variant("ecommerce")
	cfg := Config{Theme: "ecommerce", Sections: map[string]SectionState{"orders": {Visible: true}}, Styles: v.Globals}
	if err := cfg.Validate(reg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cfg.Theme = "retro"
	var verr *ValidationError
	if err := cfg.Validate(reg); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
