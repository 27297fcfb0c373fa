package handler

import (
	"log/slog"
	"net/http"
	"net/netip"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/starfav/internal/metrics"
	"github.com/hitoshi/starfav/internal/middleware"
	"github.com/hitoshi/starfav/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder

	// TrustedProxies が空の場合、転送ヘッダーは参照せず接続元アドレスをそのまま使う。
	TrustedProxies []netip.Prefix

	// 運用エンドポイント
	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer

	// 参照データ
	CatalogService CatalogServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// お気に入り
	FavoriteService FavoriteServiceInterface
}

// sitemapResponse は GET / のレスポンス。
type sitemapResponse struct {
	Endpoints []string `json:"endpoints"`
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	ClientIP → RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit(General)
//
// ClientIPはTrustedProxiesが設定されている場合のみ有効。
// お気に入りの追加・削除には更新用のレート制限を追加で適用する。
// /health と /metrics はレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	if len(deps.TrustedProxies) > 0 {
		r.Use(middleware.NewClientIPMiddleware(deps.TrustedProxies))
	}
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(log))
	r.Use(middleware.NewLoggingMiddleware(log))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeAPIErrorResponse(w, req, http.StatusNotFound, model.NewRouteNotFoundError(req.URL.Path))
	})

	catalogHandler := NewCatalogHandler(deps.CatalogService)
	userHandler := NewUserHandler(deps.UserService)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- API ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/", sitemapHandler(r))

		r.Route("/people", func(r chi.Router) {
			r.Get("/", catalogHandler.ListPeople)
			r.Get("/{id:[0-9]+}", catalogHandler.GetPerson)
			r.Delete("/{id:[0-9]+}", catalogHandler.DeletePerson)
		})

		r.Route("/planets", func(r chi.Router) {
			r.Get("/", catalogHandler.ListPlanets)
			r.Get("/{id:[0-9]+}", catalogHandler.GetPlanet)
			r.Delete("/{id:[0-9]+}", catalogHandler.DeletePlanet)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", catalogHandler.ListVehicles)
			r.Get("/{id:[0-9]+}", catalogHandler.GetVehicle)
			r.Delete("/{id:[0-9]+}", catalogHandler.DeleteVehicle)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Get("/{id:[0-9]+}", userHandler.GetUser)
			r.Delete("/{id:[0-9]+}", userHandler.DeleteUser)

			r.Get("/{user_id:[0-9]+}/favorites", favoriteHandler.ListFavorites)

			// お気に入りの追加・削除（更新用レート制限を追加）
			r.Route("/{user_id:[0-9]+}/favorite/{kind}/{target_id:[0-9]+}", func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.WriteMiddleware())
				}
				r.Post("/", favoriteHandler.AddFavorite)
				r.Delete("/", favoriteHandler.RemoveFavorite)
			})
		})
	})

	return r
}

// sitemapHandler は登録済みのルートを "METHOD /path" の形式で列挙するハンドラーを返す。
// ルート一覧はリクエスト時にchi.Walkで収集する。
func sitemapHandler(routes chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		root := chi.RouteContext(r.Context()).Routes
		if root == nil {
			root = routes
		}

		var endpoints []string
		err := chi.Walk(root, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			endpoints = append(endpoints, method+" "+route)
			return nil
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		sort.Strings(endpoints)
		writeJSON(w, http.StatusOK, sitemapResponse{Endpoints: endpoints})
	}
}
