package handler

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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/middleware"
	"github.com/collectnyc/archive/internal/model"
	"github.com/collectnyc/archive/internal/session"
)

// --- モック定義 ---

// mockCatalogService はCatalogServiceInterfaceのモック実装。
type mockCatalogService struct {
	catalogFn  func(ctx context.Context) (*model.CatalogSnapshot, error)
	queryTagFn func(ctx context.Context, tag model.TagRef) ([]model.CatalogItem, error)
	itemFn     func(ctx context.Context, slug string) (*model.CatalogItem, error)
	countsFn   func(ctx context.Context) (model.CatalogCounts, error)
}

func (m *mockCatalogService) Catalog(ctx context.Context) (*model.CatalogSnapshot, error) {
	if m.catalogFn != nil {
		return m.catalogFn(ctx)
	}
	return model.NewCatalogSnapshot(nil, time.Now()), nil
}

func (m *mockCatalogService) QueryTag(ctx context.Context, tag model.TagRef) ([]model.CatalogItem, error) {
	if m.queryTagFn != nil {
		return m.queryTagFn(ctx, tag)
	}
	return nil, nil
}

func (m *mockCatalogService) Item(ctx context.Context, slug string) (*model.CatalogItem, error) {
	if m.itemFn != nil {
		return m.itemFn(ctx, slug)
	}
	return nil, nil
}

func (m *mockCatalogService) Counts(ctx context.Context) (model.CatalogCounts, error) {
	if m.countsFn != nil {
		return m.countsFn(ctx)
	}
	return model.CatalogCounts{}, nil
}

// mockVerifier はVerifierInterfaceのモック実装。
type mockVerifier struct {
	verifyFn func(ctx context.Context, slug, candidate string) (model.VerifyResult, error)
}

func (m *mockVerifier) Verify(ctx context.Context, slug, candidate string) (model.VerifyResult, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, slug, candidate)
	}
	return model.VerifyResult{Success: false, Message: "Incorrect password."}, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- テストデータ ---

func date(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func media(n int) []model.MediaAsset {
	out := make([]model.MediaAsset, n)
	for i := range out {
		out[i] = model.MediaAsset{URL: "https://images.prismic.io/collect/" + string(rune('a'+i)) + ".jpg"}
	}
	return out
}

func testItems() []model.CatalogItem {
	return []model.CatalogItem{
		{Slug: "brand-book", Title: "Brand Book", CreationDate: date("2019-05-01"), Tags: []string{"Branding"}, Media: media(3)},
		{Slug: "annual-report", Title: "Annual Report", CreationDate: date("2021-02-10"), Tags: []string{"Print"}, Media: media(1)},
		{Slug: "secret", Title: "Secret", Tags: []string{"Print"}, Media: media(2), PasswordProtected: true},
	}
}

// --- テストクライアント ---

// testEnv はルーター全体を通してリクエストを送るテスト環境。
type testEnv struct {
	t       *testing.T
	router  http.Handler
	store   *session.Store
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T, svc *mockCatalogService, verifier *mockVerifier) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(time.Hour, logger)
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate: rate.Limit(1000), GeneralBurst: 1000,
		VerifyRate: rate.Limit(1000), VerifyBurst: 1000,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	if verifier == nil {
		verifier = &mockVerifier{}
	}

	router := NewRouter(&RouterDeps{
		SessionStore:      store,
		SessionCookie:     middleware.SessionCookieConfig{MaxAge: time.Hour},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		HealthChecker:     &mockHealthChecker{},
		Gatherer:          prometheus.NewRegistry(),
		Metrics:           metrics.NopCollector{},
		Logger:            logger,
		CatalogService:    svc,
		Verifier:          verifier,
	})

	return &testEnv{t: t, router: router, store: store}
}

// do はセッションCookieとCSRFトークンを付けてリクエストを送り、レスポンスを返す。
func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
	req.Header.Set("X-CSRF-Token", "test-token")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "archive_session" {
			e.cookies = []*http.Cookie{c}
		}
	}
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
	return v
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	body := decodeBody[apiErrorResponse](t, w)
	if body.Code != want {
		t.Errorf("code = %q, want %q", body.Code, want)
	}
}
