package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpcenter/api/internal/analytics"
	"helpcenter/api/internal/store"
)

func (e *testEnv) visit(t *testing.T, path, country string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if country != "" {
		req.Header.Set("CF-IPCountry", country)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestAnalyticsReportsPublicViewsAndSearches(t *testing.T) {
	env := newTestEnv(t)
	env.data.articles["art-ship"] = store.Article{ID: "art-ship", TenantID: tenantAcme, Title: "Shipping times", Status: "published"}
	env.data.articles["art-draft"] = store.Article{ID: "art-draft", TenantID: tenantAcme, Title: "Unreleased", Status: "draft"}

	articleURL := "/api/public/" + tenantAcme + "/articles/"
	expectStatus(t, env.visit(t, articleURL+"art-ship", "US"), http.StatusOK)
	expectStatus(t, env.visit(t, articleURL+"art-ship", "us"), http.StatusOK)
	expectStatus(t, env.visit(t, articleURL+"art-ship", ""), http.StatusOK)
	expectStatus(t, env.visit(t, articleURL+"art-draft", "US"), http.StatusNotFound)

	searchURL := "/api/public/" + tenantAcme + "/search?q="
	for _, q := range []string{"Refund%20%20Policy", "refund%20policy", "shipping", ""} {
		expectStatus(t, env.visit(t, searchURL+q, ""), http.StatusOK)
	}

	if len(env.data.views) != 3 || env.data.views[0].Path != "/articles/art-ship" {
		t.Fatalf("unexpected recorded views %+v", env.data.views)
	}
	if len(env.data.searches) != 3 {
		t.Fatalf("expected 3 recorded searches, got %+v", env.data.searches)
	}

	rr := env.do(t, http.MethodGet, "/api/analytics", env.token(t, "usr-viewer"), nil)
	expectStatus(t, rr, http.StatusOK)
	report := decodeResponse[analytics.Report](t, rr)
	if report.TotalViews != 3 {
		t.Fatalf("expected 3 views, got %d", report.TotalViews)
	}
	if len(report.GeoStats) != 2 || report.GeoStats[0].Country != "US" || report.GeoStats[0].Percentage != 66.7 {
		t.Fatalf("unexpected geo stats %+v", report.GeoStats)
	}
	if report.GeoStats[1].Country != analytics.UnknownCountry || report.GeoStats[1].Percentage != 33.3 {
		t.Fatalf("unexpected geo stats %+v", report.GeoStats)
	}
	if len(report.SearchTerms) != 2 || report.SearchTerms[0].Term != "refund policy" || report.SearchTerms[0].Count != 2 {
		t.Fatalf("unexpected search terms %+v", report.SearchTerms)
	}
	if today := time.Now().UTC().Format("2006-01-02"); len(report.DailyStats) != 1 || report.To != today {
		t.Fatalf("expected one day ending %s, got to=%s days=%+v", today, report.To, report.DailyStats)
	}
	if len(report.PopularArticles) != 1 || report.PopularArticles[0].ID != "art-ship" || report.PopularArticles[0].Views != 3 {
		t.Fatalf("unexpected popular articles %+v", report.PopularArticles)
	}

	rr = env.do(t, http.MethodGet, "/api/analytics?from=2020-01-01&to=2020-01-31", env.token(t, "usr-admin"), nil)
	expectStatus(t, rr, http.StatusOK)
	if old := decodeResponse[analytics.Report](t, rr); old.TotalViews != 0 || len(old.SearchTerms) != 0 {
		t.Fatalf("expected an empty report outside the range, got %+v", old)
	}

	rr = env.do(t, http.MethodGet, "/api/analytics", env.token(t, "usr-other"), nil)
	expectStatus(t, rr, http.StatusOK)
	if other := decodeResponse[analytics.Report](t, rr); other.TotalViews != 0 {
		t.Fatalf("expected other tenant to see no views, got %d", other.TotalViews)
	}
}

func TestAnalyticsAccessAndRange(t *testing.T) {
	env := newTestEnv(t)
	env.data.users["usr-responder"] = store.User{ID: "usr-responder", TenantID: tenantAcme, DisplayName: "Rae Responder", Email: "rae@acme.test", Role: "message_responder"}

	expectErrorCode(t, env.do(t, http.MethodGet, "/api/analytics", env.token(t, "usr-responder"), nil), http.StatusForbidden, "FORBIDDEN")
	expectErrorCode(t, env.do(t, http.MethodGet, "/api/analytics?from=2026-03-10&to=2026-03-01", env.token(t, "usr-admin"), nil), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	expectErrorCode(t, env.do(t, http.MethodGet, "/api/analytics?from=yesterday", env.token(t, "usr-admin"), nil), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	expectStatus(t, env.do(t, http.MethodGet, "/api/analytics", "", nil), http.StatusUnauthorized)
}
