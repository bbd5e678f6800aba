// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Fieldsはバリデーションエラー時のフィールド別メッセージを保持する。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, checklist, directory, resource, contact, system
	Fields   map[string]string // フィールド名 -> メッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	ErrCodeDuplicateSubscriber = "DUPLICATE_SUBSCRIBER"
	ErrCodeDuplicateResource   = "DUPLICATE_RESOURCE"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeNotAuthenticated    = "NOT_AUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeChecklistNotFound   = "CHECKLIST_NOT_FOUND"
	ErrCodeDirectoryNotFound   = "DIRECTORY_ENTRY_NOT_FOUND"
	ErrCodeResourceNotFound    = "RESOURCE_NOT_FOUND"
	ErrCodeLogoutFailed        = "LOGOUT_FAILED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ストア層が返す一意制約違反エラー。サービス層でAPIErrorに変換する。
var (
	ErrDuplicateEmail       = errors.New("email already exists")
	ErrDuplicateUsername    = errors.New("username already exists")
	ErrDuplicateSubscriber  = errors.New("subscriber already exists")
	ErrDuplicateResourceURL = errors.New("resource url already exists")
)

// NewValidationError はフィールド別メッセージを含むバリデーションエラーを生成する。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "Validation failed",
		Category: "validation",
		Fields:   fields,
	}
}

// NewInvalidRequestError はリクエストボディやパスパラメータが解釈できない場合のエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email already registered",
		Category: "auth",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  "Username already taken",
		Category: "auth",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレスの有無とパスワード誤りを区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
	}
}

// NewNotAuthenticatedError は未認証エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "Not authenticated",
		Category: "auth",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセスを拒否するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have access to this resource",
		Category: "auth",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "checklist",
	}
}

// NewChecklistNotFoundError はチェックリストが見つからない場合のエラーを生成する。
func NewChecklistNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeChecklistNotFound,
		Message:  fmt.Sprintf("Checklist %d not found", id),
		Category: "checklist",
	}
}

// NewDirectoryEntryNotFoundError はディレクトリエントリが見つからない場合のエラーを生成する。
func NewDirectoryEntryNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeDirectoryNotFound,
		Message:  fmt.Sprintf("Directory entry %d not found", id),
		Category: "directory",
	}
}

// NewResourceNotFoundError はリソースが見つからない場合のエラーを生成する。
func NewResourceNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("Resource %d not found", id),
		Category: "resource",
	}
}

// NewDuplicateResourceError は同一URLのリソースが登録済みの場合のエラーを生成する。
func NewDuplicateResourceError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateResource,
		Message:  "A resource with this URL already exists",
		Category: "resource",
	}
}

// NewDuplicateSubscriberError は購読済みメールアドレスのエラーを生成する。
func NewDuplicateSubscriberError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSubscriber,
		Message:  "This email is already subscribed",
		Category: "contact",
	}
}

// NewLogoutFailedError はセッションストアの障害でログアウトできなかった場合のエラーを生成する。
func NewLogoutFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLogoutFailed,
		Message:  "Logout failed",
		Category: "system",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred",
		Category: "system",
	}
}
