package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/musicomply/internal/middleware"
	"github.com/hitoshi/musicomply/internal/model"
)

// BodyDecoder はリクエストボディを検証してからデコードする。
// 失敗時は*model.APIErrorを返す。
type BodyDecoder interface {
	Decode(body io.Reader, dst any) error
}

// messageResponse は成功メッセージのみを返すレスポンス。
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Genre     *string   `json:"genre"`
	Country   string    `json:"country"`
	UserType  string    `json:"userType"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Genre:     u.Genre,
		Country:   u.Country,
		UserType:  string(u.UserType),
		CreatedAt: u.CreatedAt,
	}
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外は内容をログに残し、クライアントには一般的な500を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidRequest,
		model.ErrCodeDuplicateEmail, model.ErrCodeDuplicateUsername, model.ErrCodeDuplicateResource:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials, model.ErrCodeNotAuthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeChecklistNotFound,
		model.ErrCodeDirectoryNotFound, model.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateSubscriber:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// parseIDParam はパスパラメータを正の整数IDとして解釈する。
func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewInvalidRequestError("Invalid " + name)
	}
	return id, nil
}

// currentUser はコンテキストの認証済みユーザーを返す。
// RequireAuthの内側でのみ呼ぶ前提だが、未認証ならNOT_AUTHENTICATEDを返す。
func currentUser(r *http.Request) (*model.User, error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, model.NewNotAuthenticatedError()
	}
	return user, nil
}

func notFoundError() *model.APIError {
	return &model.APIError{
		Code:     "NOT_FOUND",
		Message:  "The requested endpoint does not exist",
		Category: "system",
	}
}

func methodNotAllowedError() *model.APIError {
	return &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "Method not allowed",
		Category: "system",
	}
}
