package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/musicomply/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	HSTS              bool
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPMetricsRecorder
	MetricsHandler    http.Handler
	HealthPinger      Pinger

	// リクエストボディの検証
	Decoder BodyDecoder

	// 認証
	AuthService AuthServiceInterface
	Sessions    SessionIssuer
	AuthEvents  AuthEventRecorder

	// ドメイン
	ChecklistService ChecklistServiceInterface
	DirectoryService DirectoryServiceInterface
	ResourceService  ResourceServiceInterface
	ContactService   ContactServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → OriginCheck → Metrics → Session → Logging
//
// ログイン・登録にはさらにIP単位のレート制限を、保護ルートにはRequireAuthを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewOriginCheckMiddleware(deps.CORSAllowedOrigin))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
	r.Use(middleware.NewLoggingMiddleware(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, notFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowedError())
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.Decoder, deps.AuthEvents)
	checklistHandler := NewChecklistHandler(deps.ChecklistService, deps.Decoder)
	directoryHandler := NewDirectoryHandler(deps.DirectoryService, deps.Decoder)
	resourceHandler := NewResourceHandler(deps.ResourceService, deps.Decoder)
	contactHandler := NewContactHandler(deps.ContactService, deps.Decoder)

	r.Get("/health", HealthHandler(deps.HealthPinger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.AuthMiddleware())
				}
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Post("/logout", authHandler.Logout)
			r.With(middleware.RequireAuth).Get("/user", authHandler.CurrentUser)
		})

		// 認証不要の公開ルート
		r.Get("/compliance-checklist", checklistHandler.ListItems)
		r.Route("/directory", func(r chi.Router) {
			r.Get("/", directoryHandler.List)
			r.Post("/", directoryHandler.Create)
			r.Get("/{id}", directoryHandler.Get)
		})
		r.Get("/resources", resourceHandler.List)
		r.Get("/resources/{id}", resourceHandler.Get)
		r.Post("/contact", contactHandler.SubmitMessage)
		r.Post("/subscribe", contactHandler.Subscribe)

		// 認証が必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Post("/resources", resourceHandler.Create)
			r.Route("/user-checklists", func(r chi.Router) {
				r.Post("/", checklistHandler.Create)
				r.Get("/{userId}", checklistHandler.ListForUser)
				r.Patch("/{id}", checklistHandler.Update)
			})
		})
	})

	return r
}
