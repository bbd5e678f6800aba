package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/musicomply/internal/model"
)

// NewOriginCheckMiddleware は状態変更リクエストのOrigin（なければReferer）を検証するCSRF対策ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）とOrigin/Refererを持たないリクエストは検証しない。
// 許可されるのはallowedOriginとリクエスト自身のホストのみ。
func NewOriginCheckMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				if ref := r.Header.Get("Referer"); ref != "" {
					if u, err := url.Parse(ref); err == nil {
						origin = u.Scheme + "://" + u.Host
					}
				}
			}
			if origin == "" || origin == allowedOrigin || sameHost(origin, r.Host) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("cross-origin request rejected",
				slog.String("origin", origin),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", RequestIDFromContext(r.Context())),
			)
			WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// sameHost はOriginのホストがリクエストのHostと一致するかを返す。
func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
