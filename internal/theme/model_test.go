package theme

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return t }
}

func ids(m *Model) []string {
	out := make([]string, 0, m.Len())
	for _, s := range m.Sections() {
		out = append(out, s.ID)
	}
	return out
}

func seeded(t *testing.T, names ...string) *Model {
	t.Helper()
	templates := make([]SectionTemplate, 0, len(names))
	for _, n := range names {
		templates = append(templates, SectionTemplate{ID: n, Title: strings.ToUpper(n), Icon: "Box"})
	}
	m, err := NewModelFromTemplates(templates)
	if err != nil {
		t.Fatalf("seed model: %v", err)
	}
	return m
}

func assertOrders(t *testing.T, m *Model) {
	t.Helper()
	for i, ps := range m.Snapshot() {
		if ps.Order != i {
			t.Fatalf("snapshot[%d] has order %d", i, ps.Order)
		}
	}
}

func TestSnapshotOrdersAreDense(t *testing.T) {
	m := NewModel(WithClock(fixedClock()))
	tpl := SectionTemplate{ID: "faq", Title: "FAQ", Icon: "HelpCircle"}
	var added []Section
	for i := 0; i < 5; i++ {
		added = append(added, m.AddSection(tpl))
		assertOrders(t, m)
	}
	if _, err := m.MoveSection(added[4].ID, 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertOrders(t, m)
	if err := m.RemoveSection(added[2].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertOrders(t, m)
	if _, err := m.MoveSection(added[0].ID, 99); err != nil {
		t.Fatalf("move past end: %v", err)
	}
	assertOrders(t, m)
	if got := m.IndexOf(added[0].ID); got != m.Len()-1 {
		t.Fatalf("expected clamp to last index, got %d", got)
	}
	if _, err := m.MoveSection(added[0].ID, -3); err != nil {
		t.Fatalf("move before start: %v", err)
	}
	if got := m.IndexOf(added[0].ID); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	assertOrders(t, m)
}

func TestMoveToCurrentIndexIsNoop(t *testing.T) {
	var events []Event
	m := seeded(t, "a", "b", "c")
	m.observer = func(e Event) { events = append(events, e) }
	before := strings.Join(ids(m), ",")
	changed, err := m.MoveSection("b", 1)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if changed {
		t.Fatalf("expected no change")
	}
	if after := strings.Join(ids(m), ","); after != before {
		t.Fatalf("order changed: %s -> %s", before, after)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}

func TestMoveLastToFront(t *testing.T) {
	m := seeded(t, "a", "b", "c")
	if _, err := m.MoveSection("c", 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	snap := m.Snapshot()
	want := []string{"c", "a", "b"}
	for i, w := range want {
		if snap[i].ID != w || snap[i].Order != i {
			t.Fatalf("snapshot[%d] = %s/%d, want %s/%d", i, snap[i].ID, snap[i].Order, w, i)
		}
	}
}

func TestAddThenRemoveTemplateSection(t *testing.T) {
	m := NewModel(WithClock(fixedClock()))
	s := m.AddSection(SectionTemplate{ID: "hdr", Title: "Header"})
	if !strings.HasPrefix(s.ID, "hdr-") {
		t.Fatalf("expected hdr- prefix, got %q", s.ID)
	}
	if !s.Visible || s.Title != "Header" || s.Icon != FallbackIcon {
		t.Fatalf("unexpected section %+v", s)
	}
	if err := m.RemoveSection(s.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty model, got %v", ids(m))
	}
	cfg := Serialize(m, GlobalStyles{}, "ecommerce")
	if len(cfg.Sections) != 0 {
		t.Fatalf("expected empty sections map, got %v", cfg.Sections)
	}
}

func TestAddSameTemplateTwiceMintsDistinctIDs(t *testing.T) {
	m := NewModel(WithClock(fixedClock()))
	tpl := SectionTemplate{ID: "orders", Title: "Orders"}
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		s := m.AddSection(tpl)
		if seen[s.ID] {
			t.Fatalf("duplicate id %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestToggleUnknownSectionLeavesModelUntouched(t *testing.T) {
	m := seeded(t, "a", "b", "c")
	if _, err := m.ToggleVisibility("b"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	before := m.Sections()
	_, err := m.ToggleVisibility("nonexistent")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
	after := m.Sections()
	for i := range before {
		if before[i].Visible != after[i].Visible {
			t.Fatalf("visibility of %s changed", before[i].ID)
		}
	}
}

func TestUnknownIDErrors(t *testing.T) {
	m := seeded(t, "a")
	checks := map[string]error{}
	checks["remove"] = m.RemoveSection("x")
	_, checks["move"] = m.MoveSection("x", 0)
	_, checks["content"] = m.UpdateContent("x", "t", "d")
	_, checks["style"] = m.UpdateStyleOverride("x", StyleOverride{TextColor: Str("red")})
	for op, err := range checks {
		if !errors.Is(err, ErrSectionNotFound) {
			t.Fatalf("%s: expected ErrSectionNotFound, got %v", op, err)
		}
	}
	if m.Len() != 1 {
		t.Fatalf("model mutated")
	}
}

func TestUpdateContentIdenticalValuesEmitsNothing(t *testing.T) {
	var events []Event
	m := seeded(t, "a")
	m.observer = func(e Event) { events = append(events, e) }
	changed, err := m.UpdateContent("a", "A", "")
	if err != nil || changed {
		t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
	}
	changed, err = m.UpdateContent("a", "Alpha", "first")
	if err != nil || !changed {
		t.Fatalf("expected change, got changed=%v err=%v", changed, err)
	}
	if len(events) != 1 || events[0].Kind != EventContent {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestUpdateStyleOverrideMergesShallowly(t *testing.T) {
	m := seeded(t, "a")
	if _, err := m.UpdateStyleOverride("a", StyleOverride{TextColor: Str("red")}); err != nil {
		t.Fatalf("first patch: %v", err)
	}
	if _, err := m.UpdateStyleOverride("a", StyleOverride{IconColor: Str("green")}); err != nil {
		t.Fatalf("second patch: %v", err)
	}
	s, _ := m.Section("a")
	if s.StyleOverride == nil || *s.StyleOverride.TextColor != "red" || *s.StyleOverride.IconColor != "green" {
		t.Fatalf("unexpected override %+v", s.StyleOverride)
	}
	if _, err := m.UpdateStyleOverride("a", StyleOverride{TextColor: Str(""), IconColor: Str("")}); err != nil {
		t.Fatalf("clear patch: %v", err)
	}
	s, _ = m.Section("a")
	if s.StyleOverride != nil {
		t.Fatalf("expected override cleared, got %+v", s.StyleOverride)
	}
}

func TestSectionsAreCopies(t *testing.T) {
	m := seeded(t, "a")
	if _, err := m.UpdateStyleOverride("a", StyleOverride{TextColor: Str("red")}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	secs := m.Sections()
	secs[0].Title = "mutated"
	*secs[0].StyleOverride.TextColor = "blue"
	s, _ := m.Section("a")
	if s.Title != "A" || *s.StyleOverride.TextColor != "red" {
		t.Fatalf("model leaked internal state: %+v", s)
	}
}
