package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"helpcenter/api/internal/analytics"
	"helpcenter/api/internal/theme"
)

func openMigrated(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := testDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if _, err := ApplyMigrations(ctx, db, Migrations()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func TestThemeConfigLastWriteWins(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	if err := s.CreateTenantWithAdmin(ctx, Tenant{ID: "tn_1", Name: "Acme"}, User{
		ID: "usr_1", DisplayName: "Ada", Email: "Ada@Example.com", PasswordHash: "x",
	}); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	if _, ok, err := s.LoadThemeConfig(ctx, "tn_1"); err != nil || ok {
		t.Fatalf("expected no stored config, ok=%v err=%v", ok, err)
	}

	v, _ := theme.DefaultRegistry().Variant("ecommerce")
	first := theme.Config{Theme: "ecommerce", Sections: map[string]theme.SectionState{"orders": {Visible: true, Order: 0}}, Styles: v.Globals}
	second := theme.Config{Theme: "ecommerce", Sections: map[string]theme.SectionState{"returns": {Visible: false, Order: 0}}, Styles: v.Globals}

	if rev, err := s.SaveThemeConfig(ctx, "tn_1", first, "usr_1"); err != nil || rev != 1 {
		t.Fatalf("first save rev=%d err=%v", rev, err)
	}
	if rev, err := s.SaveThemeConfig(ctx, "tn_1", second, "usr_1"); err != nil || rev != 2 {
		t.Fatalf("second save rev=%d err=%v", rev, err)
	}
	got, ok, err := s.LoadThemeConfig(ctx, "tn_1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if _, has := got.Sections["returns"]; !has || len(got.Sections) != 1 {
		t.Fatalf("expected second document, got %+v", got.Sections)
	}

	if err := s.SaveBranding(ctx, "tn_1", theme.Branding{HeaderText: "Hi", SearchPlaceholder: "Search"}); err != nil {
		t.Fatalf("save branding: %v", err)
	}
	if b, ok, err := s.LoadBranding(ctx, "tn_1"); err != nil || !ok || b.HeaderText != "Hi" {
		t.Fatalf("load branding: %+v ok=%v err=%v", b, ok, err)
	}
}

func TestSectionContentUpsert(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	if err := s.CreateTenantWithAdmin(ctx, Tenant{ID: "tn_1", Name: "Acme"}, User{
		ID: "usr_1", DisplayName: "Ada", Email: "ada@example.com", PasswordHash: "x",
	}); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	c := theme.Content{Title: "Shipping", Icon: "Truck", StyleOverride: &theme.StyleOverride{TextColor: theme.Str("red")}}
	if err := s.PutSectionContent(ctx, "tn_1", "orders", c); err != nil {
		t.Fatalf("put: %v", err)
	}
	c.Title = "Delivery"
	c.StyleOverride = nil
	if err := s.PutSectionContent(ctx, "tn_1", "orders", c); err != nil {
		t.Fatalf("put again: %v", err)
	}
	got, ok, err := s.GetSectionContent(ctx, "tn_1", "orders")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Title != "Delivery" || got.StyleOverride != nil {
		t.Fatalf("unexpected content %+v", got)
	}
	if _, ok, err := s.GetSectionContent(ctx, "tn_1", "missing"); err != nil || ok {
		t.Fatalf("expected absent content, ok=%v err=%v", ok, err)
	}
	if err := s.DeletePage(ctx, "tn_1", "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestAnalyticsCountsStayInsideRange(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	if err := s.CreateTenantWithAdmin(ctx, Tenant{ID: "tn_1", Name: "Acme"}, User{
		ID: "usr_1", DisplayName: "Ada", Email: "ada@example.com", PasswordHash: "x",
	}); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	day := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	views := []analytics.PageView{
		{TenantID: "tn_1", Path: "/articles/a", Country: "US", At: day},
		{TenantID: "tn_1", Path: "/articles/a", Country: "US", At: day.Add(time.Hour)},
		{TenantID: "tn_1", Path: "/articles/b", Country: "DE", At: day.AddDate(0, 0, 1)},
		{TenantID: "tn_1", Path: "/articles/b", Country: "DE", At: day.AddDate(0, 0, 30)},
	}
	for _, v := range views {
		if err := s.InsertPageView(ctx, v); err != nil {
			t.Fatalf("insert view: %v", err)
		}
	}
	for _, term := range []string{"refund", "refund", "shipping"} {
		if err := s.InsertSearchEvent(ctx, analytics.SearchEvent{TenantID: "tn_1", Term: term, At: day}); err != nil {
			t.Fatalf("insert search: %v", err)
		}
	}

	r, err := analytics.ParseRange("2026-03-01", "2026-03-07", day)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	c, err := s.AnalyticsCounts(ctx, "tn_1", r)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.TotalViews != 3 || len(c.Countries) != 2 || len(c.Days) != 2 {
		t.Fatalf("unexpected counts %+v", c)
	}
	if len(c.Terms) != 2 || c.Terms[0].Term != "refund" || c.Terms[0].Count != 2 {
		t.Fatalf("unexpected terms %+v", c.Terms)
	}
	if c.Days[0].Date != "2026-03-03" {
		t.Fatalf("expected newest day first, got %+v", c.Days)
	}
}
