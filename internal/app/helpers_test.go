package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"helpcenter/api/internal/config"
	"helpcenter/api/internal/gitrepo"
	"helpcenter/api/internal/session"
	"helpcenter/api/internal/store"
)

const (
	tenantAcme  = "tnt-acme"
	tenantOther = "tnt-other"
)

type testEnv struct {
	svc      *Service
	data     *memStore
	sessions *session.MemoryStore
	handler  http.Handler
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "test-secret",
		AccessTTL:      time.Hour,
		RefreshTTL:     24 * time.Hour,
		CORSOrigin:     "*",
		ConsoleURL:     "http://console.test",
		EditSessionTTL: time.Hour,
		DefaultTheme:   "ecommerce",
	}
}

// newTestEnv seeds two tenants: acme with an admin, an editor and a
// viewer, and other with a single admin.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	data := newMemStore()
	data.tenants[tenantAcme] = store.Tenant{ID: tenantAcme, Name: "Acme"}
	data.tenants[tenantOther] = store.Tenant{ID: tenantOther, Name: "Other Co"}
	for _, u := range []store.User{
		{ID: "usr-admin", TenantID: tenantAcme, DisplayName: "Ada Admin", Email: "ada@acme.test", Role: "admin"},
		{ID: "usr-editor", TenantID: tenantAcme, DisplayName: "Eve Editor", Email: "eve@acme.test", Role: "editor"},
		{ID: "usr-viewer", TenantID: tenantAcme, DisplayName: "Val Viewer", Email: "val@acme.test", Role: "viewer"},
		{ID: "usr-other", TenantID: tenantOther, DisplayName: "Oscar Other", Email: "oscar@other.test", Role: "admin"},
	} {
		data.users[u.ID] = u
	}

	sessions := session.NewMemoryStore()
	svc := newService(testConfig(), data, sessions, gitrepo.New(t.TempDir()))
	svc.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	svc.passwords.WithCost(bcrypt.MinCost)

	return &testEnv{
		svc:      svc,
		data:     data,
		sessions: sessions,
		handler:  NewHTTPServer(svc, "*").Handler(),
	}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	user, err := e.data.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("unknown test user %s", userID)
	}
	sess, err := e.svc.issueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return sess.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	expectStatus(t, rr, status)
	body := decodeResponse[map[string]any](t, rr)
	if body["code"] != code {
		t.Fatalf("expected code %s, got %v", code, body["code"])
	}
	return body
}
