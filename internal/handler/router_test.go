package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/starfav/internal/metrics"
	"github.com/hitoshi/starfav/internal/middleware"
	"github.com/hitoshi/starfav/internal/model"
)

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// newTestRouter はモックサービスで構成したルーターを返す。
func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if deps.RateLimiter == nil {
		rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		t.Cleanup(rl.Stop)
		deps.RateLimiter = rl
	}
	if deps.CatalogService == nil {
		deps.CatalogService = &mockCatalogService{}
	}
	if deps.UserService == nil {
		deps.UserService = &mockUserService{}
	}
	if deps.FavoriteService == nil {
		deps.FavoriteService = &mockFavoriteService{}
	}
	if deps.CORSAllowedOrigin == "" {
		deps.CORSAllowedOrigin = "*"
	}
	return NewRouter(deps)
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewRouter_Sitemap(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	w := serve(router, http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}

	var body sitemapResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode sitemap: %v", err)
	}
	joined := strings.Join(body.Endpoints, "\n")

	for _, want := range []string{
		"GET /health",
		"GET /people/{id:[0-9]+}",
		"DELETE /planets/{id:[0-9]+}",
		"GET /vehicles/",
		"GET /users/{user_id:[0-9]+}/favorites",
		"POST /users/{user_id:[0-9]+}/favorite/{kind}/{target_id:[0-9]+}",
		"DELETE /users/{user_id:[0-9]+}/favorite/{kind}/{target_id:[0-9]+}",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("sitemap に %q が含まれていない:\n%s", want, joined)
		}
	}
}

func TestNewRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	for _, path := range []string{"/starships", "/people/abc", "/users/1/favorite/planet/x"} {
		w := serve(router, http.MethodGet, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusNotFound)
			continue
		}
		if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeRouteNotFound {
			t.Errorf("GET %s code = %q, want %q", path, body["code"], model.ErrCodeRouteNotFound)
		}
	}
}

func TestNewRouter_AmbientHeaders(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	w := serve(router, http.MethodGet, "/people")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /people status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("X-Request-ID ヘッダーが設定されていない")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("セキュリティヘッダーが設定されていない")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORSヘッダーが設定されていない")
	}
}

func TestNewRouter_Health(t *testing.T) {
	tests := []struct {
		name    string
		checker HealthChecker
		want    int
	}{
		{"DB疎通あり", &mockHealthChecker{}, http.StatusOK},
		{"DB疎通なし", &mockHealthChecker{err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable},
		{"チェッカーなし", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &RouterDeps{HealthChecker: tt.checker})
			if w := serve(router, http.MethodGet, "/health"); w.Code != tt.want {
				t.Errorf("GET /health status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	router := newTestRouter(t, &RouterDeps{
		HTTPRecorder:    collector,
		MetricsGatherer: reg,
	})

	serve(router, http.MethodGet, "/people")

	w := serve(router, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `starfav_http_requests_total{method="GET",status_code="200"}`) {
		t.Errorf("HTTPメトリクスが出力されていない:\n%s", w.Body.String())
	}
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{})

	if w := serve(router, http.MethodGet, "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("GET /metrics status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNewRouter_FavoriteRoutes(t *testing.T) {
	var added, removed model.Target
	svc := &mockFavoriteService{
		addFn: func(ctx context.Context, userID int64, target model.Target) (*favoriteResponse, error) {
			added = target
			return &favoriteResponse{ID: 1, UserID: userID}, nil
		},
		removeFn: func(ctx context.Context, userID int64, target model.Target) error {
			removed = target
			return nil
		},
	}
	router := newTestRouter(t, &RouterDeps{FavoriteService: svc})

	if w := serve(router, http.MethodPost, "/users/1/favorite/planet/5"); w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", w.Code, http.StatusCreated)
	}
	if added != model.PlanetTarget(5) {
		t.Errorf("added = %v, want planet:5", added)
	}

	if w := serve(router, http.MethodDelete, "/users/1/favorite/vehicules/4"); w.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want %d", w.Code, http.StatusOK)
	}
	if removed != model.VehicleTarget(4) {
		t.Errorf("removed = %v, want vehicle:4", removed)
	}

	if w := serve(router, http.MethodGet, "/users/1/favorites"); w.Code != http.StatusOK {
		t.Fatalf("GET favorites status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestNewRouter_WriteRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(120, 1))
	t.Cleanup(rl.Stop)
	router := newTestRouter(t, &RouterDeps{
		RateLimiter: rl,
		FavoriteService: &mockFavoriteService{
			addFn: func(ctx context.Context, userID int64, target model.Target) (*favoriteResponse, error) {
				return &favoriteResponse{ID: 1, UserID: userID}, nil
			},
		},
	})

	if w := serve(router, http.MethodPost, "/users/1/favorite/people/1"); w.Code != http.StatusCreated {
		t.Fatalf("1回目 status = %d, want %d", w.Code, http.StatusCreated)
	}
	w := serve(router, http.MethodPost, "/users/1/favorite/people/1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("2回目 status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 参照系は更新用の制限を受けない
	if w := serve(router, http.MethodGet, "/people"); w.Code != http.StatusOK {
		t.Errorf("GET /people status = %d, want %d", w.Code, http.StatusOK)
	}
}

// postFrom は接続元アドレスとX-Forwarded-Forを指定してPOSTする。
func postFrom(router http.Handler, path, remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newRateLimitedFavoriteRouter(t *testing.T, trusted []netip.Prefix) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(120, 1))
	t.Cleanup(rl.Stop)
	return newTestRouter(t, &RouterDeps{
		RateLimiter:    rl,
		TrustedProxies: trusted,
		FavoriteService: &mockFavoriteService{
			addFn: func(ctx context.Context, userID int64, target model.Target) (*favoriteResponse, error) {
				return &favoriteResponse{ID: 1, UserID: userID}, nil
			},
		},
	})
}

func TestNewRouter_WriteRateLimit_IgnoresForwardedFor(t *testing.T) {
	router := newRateLimitedFavoriteRouter(t, nil)
	const path = "/users/1/favorite/planet/5"

	if w := postFrom(router, path, "203.0.113.7:1234", "10.0.0.0"); w.Code != http.StatusCreated {
		t.Fatalf("1回目 status = %d, want %d", w.Code, http.StatusCreated)
	}
	// 同じ接続元からX-Forwarded-Forを変えても制限を回避できない
	for i := 1; i <= 4; i++ {
		xff := "10.0.0." + strconv.Itoa(i)
		if w := postFrom(router, path, "203.0.113.7:1234", xff); w.Code != http.StatusTooManyRequests {
			t.Errorf("XFF=%s status = %d, want %d", xff, w.Code, http.StatusTooManyRequests)
		}
	}
}

func TestNewRouter_WriteRateLimit_TrustedProxyUsesForwardedClient(t *testing.T) {
	router := newRateLimitedFavoriteRouter(t, []netip.Prefix{netip.MustParsePrefix("10.1.0.0/16")})
	const path = "/users/1/favorite/planet/5"

	// 信頼済みプロキシ経由ではクライアントごとに制限される
	if w := postFrom(router, path, "10.1.0.5:4000", "198.51.100.1"); w.Code != http.StatusCreated {
		t.Fatalf("client A status = %d, want %d", w.Code, http.StatusCreated)
	}
	if w := postFrom(router, path, "10.1.0.5:4000", "198.51.100.2"); w.Code != http.StatusCreated {
		t.Fatalf("client B status = %d, want %d", w.Code, http.StatusCreated)
	}
	if w := postFrom(router, path, "10.1.0.5:4000", "198.51.100.1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("client A 2回目 status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 信頼済みでない接続元の転送ヘッダーは無視する
	if w := postFrom(router, path, "203.0.113.7:1234", "198.51.100.3"); w.Code != http.StatusCreated {
		t.Fatalf("direct status = %d, want %d", w.Code, http.StatusCreated)
	}
	if w := postFrom(router, path, "203.0.113.7:1234", "198.51.100.4"); w.Code != http.StatusTooManyRequests {
		t.Errorf("direct spoofed status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
}

func TestNewRouter_RecoversFromPanic(t *testing.T) {
	svc := &mockCatalogService{
		listPeopleFn: func(ctx context.Context) ([]*model.Person, error) {
			panic("boom")
		},
	}
	router := newTestRouter(t, &RouterDeps{CatalogService: svc})

	w := serve(router, http.MethodGet, "/people")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInternal)
	}
}
