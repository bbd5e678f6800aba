// Package session はCookieで識別するサーバーサイドセッションの発行・解決・破棄を提供する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

// CookieName はセッショントークンを格納するCookie名。
const CookieName = "session_id"

// DefaultTTL はセッションの既定有効期間（7日）。
const DefaultTTL = 7 * 24 * time.Hour

// UserFinder はセッションのユーザーIDからユーザーを引くためのインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// Config はセッション発行の設定。
type Config struct {
	TTL          time.Duration
	CookieDomain string
	CookieSecure bool // 開発環境以外でtrue
}

// Manager はセッションの発行・解決・破棄を行う。
// 有効期限は発行時点からの絶対時刻で、アクセスによる延長は行わない。
type Manager struct {
	sessions repository.SessionRepository
	users    UserFinder
	config   Config
	now      func() time.Time
}

// NewManager はManagerを生成する。TTLが0以下の場合はDefaultTTLを使用する。
func NewManager(sessions repository.SessionRepository, users UserFinder, config Config) *Manager {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	return &Manager{
		sessions: sessions,
		users:    users,
		config:   config,
		now:      time.Now,
	}
}

// Issue は新しいセッションを作成し、セッションCookieを設定する。
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, userID int64) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := m.now()
	sess := &model.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: now.Add(m.config.TTL),
		CreatedAt: now,
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   int(m.config.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Resolve はトークンに対応するユーザーを返す。
// 未知・期限切れのトークンやユーザーが存在しない場合はnil, nilを返す。
func (m *Manager) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	sess, err := m.sessions.FindByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if sess == nil || sess.Expired(m.now()) {
		return nil, nil
	}

	user, err := m.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session user: %w", err)
	}
	if user == nil {
		slog.Warn("session references missing user", slog.Int64("user_id", sess.UserID))
		return nil, nil
	}
	return user, nil
}

// Destroy はセッションを削除してCookieを無効化する。
// トークンが空または存在しない場合も成功として扱う。Cookieは削除失敗時もクリアする。
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, token string) error {
	var err error
	if token != "" {
		if delErr := m.sessions.DeleteByID(ctx, token); delErr != nil {
			err = fmt.Errorf("failed to delete session: %w", delErr)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

// TokenFromRequest はリクエストのCookieからセッショントークンを取り出す。
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateToken は暗号的に安全な32バイトのトークンを16進文字列で返す。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
