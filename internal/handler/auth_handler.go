// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/hitoshi/musicomply/internal/auth"
	"github.com/hitoshi/musicomply/internal/metrics"
	"github.com/hitoshi/musicomply/internal/middleware"
	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/session"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
}

// SessionIssuer はセッションの発行と破棄を行う。Cookieの書き込みも担う。
type SessionIssuer interface {
	Issue(ctx context.Context, w http.ResponseWriter, userID int64) (*model.Session, error)
	Destroy(ctx context.Context, w http.ResponseWriter, token string) error
}

// AuthEventRecorder は認証イベントのメトリクス記録先。
type AuthEventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// AuthHandler はパスワード認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionIssuer
	decoder  BodyDecoder
	events   AuthEventRecorder
}

// NewAuthHandler はAuthHandlerを生成する。eventsがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, sessions SessionIssuer, decoder BodyDecoder, events AuthEventRecorder) *AuthHandler {
	if events == nil {
		events = noopAuthEvents{}
	}
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		decoder:  decoder,
		events:   events,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username      string  `json:"username" jsonschema:"required,minLength=3,maxLength=50,pattern=^[A-Za-z0-9_.-]+$"`
	Name          string  `json:"name" jsonschema:"required,minLength=1,maxLength=100"`
	Email         string  `json:"email" jsonschema:"required,format=email,maxLength=254"`
	Password      string  `json:"password" jsonschema:"required,minLength=8,maxLength=128"`
	UserType      string  `json:"userType" jsonschema:"required,enum=artist,enum=label"`
	Genre         *string `json:"genre,omitempty" jsonschema:"maxLength=100"`
	Country       string  `json:"country" jsonschema:"required,minLength=1,maxLength=100"`
	TermsAccepted bool    `json:"termsAccepted" jsonschema:"required"`
}

// JSONSchemaExtend は利用規約への同意をtrueに限定する。
func (registerRequest) JSONSchemaExtend(s *jsonschema.Schema) {
	if p, ok := s.Properties.Get("termsAccepted"); ok {
		p.Const = true
	}
}

// loginRequest はログインリクエストのボディ。userTypeは受け付けるが認証には使わない。
type loginRequest struct {
	Email    string `json:"email" jsonschema:"required,format=email"`
	Password string `json:"password" jsonschema:"required,minLength=1"`
	UserType string `json:"userType,omitempty" jsonschema:"enum=artist,enum=label"`
}

// authUserResponse はユーザー情報付きの認証レスポンス。
type authUserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    userResponse `json:"user"`
}

// Register はユーザーを登録し、そのままログイン状態にする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		h.events.RecordAuthEvent(metrics.AuthEventRegister, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}

	in := auth.RegisterInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		UserType: model.UserType(req.UserType),
		Country:  req.Country,
	}
	if req.Genre != nil {
		in.Genre = *req.Genre
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.events.RecordAuthEvent(metrics.AuthEventRegister, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}

	// 登録自体は完了しているため、セッション発行に失敗してもログインを促すだけにする
	if _, err := h.sessions.Issue(r.Context(), w, user.ID); err != nil {
		slog.Error("failed to issue session after registration",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	h.events.RecordAuthEvent(metrics.AuthEventRegister, metrics.OutcomeSuccess)
	writeJSON(w, http.StatusCreated, authUserResponse{
		Success: true,
		Message: "Registration successful",
		User:    toUserResponse(user),
	})
}

// Login はメールアドレスとパスワードで認証し、セッションCookieを発行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		h.events.RecordAuthEvent(metrics.AuthEventLogin, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.events.RecordAuthEvent(metrics.AuthEventLogin, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}

	if _, err := h.sessions.Issue(r.Context(), w, user.ID); err != nil {
		h.events.RecordAuthEvent(metrics.AuthEventLogin, metrics.OutcomeFailure)
		handleServiceError(w, r, err)
		return
	}

	h.events.RecordAuthEvent(metrics.AuthEventLogin, metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, authUserResponse{
		Success: true,
		Message: "Login successful",
		User:    toUserResponse(user),
	})
}

// Logout はセッションを破棄する。セッションがなくても成功とする。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, session.TokenFromRequest(r)); err != nil {
		slog.Error("failed to logout",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		h.events.RecordAuthEvent(metrics.AuthEventLogout, metrics.OutcomeFailure)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewLogoutFailedError())
		return
	}

	h.events.RecordAuthEvent(metrics.AuthEventLogout, metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Logout successful",
	})
}

// CurrentUser はログイン中のユーザー情報を返す。
// GET /api/auth/user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authUserResponse{
		Success: true,
		User:    toUserResponse(user),
	})
}

type noopAuthEvents struct{}

func (noopAuthEvents) RecordAuthEvent(string, string) {}
