// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// UserType はアカウント種別（アーティスト/レーベル）を表す。
type UserType string

const (
	// UserTypeArtist はアーティストアカウント。
	UserTypeArtist UserType = "artist"
	// UserTypeLabel はレーベルアカウント。
	UserTypeLabel UserType = "label"
)

// Valid は既知のアカウント種別かどうかを返す。
func (t UserType) Valid() bool {
	return t == UserTypeArtist || t == UserTypeLabel
}

// User はサービス利用ユーザーを表す。
// PasswordHashはソルト付きハッシュのみを保持し、平文は保持しない。
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Name         string
	Genre        *string
	Country      string
	UserType     UserType
	CreatedAt    time.Time
}

// NewUserParams はNewUserに渡す登録情報。
type NewUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Name         string
	Genre        string
	Country      string
	UserType     UserType
}

// NewUser は未保存のUserを生成する。
// 空のジャンルはnilに、作成日時はnowに揃える。IDはストアが採番する。
func NewUser(p NewUserParams, now time.Time) User {
	var genre *string
	if g := strings.TrimSpace(p.Genre); g != "" {
		genre = &g
	}
	return User{
		Username:     strings.TrimSpace(p.Username),
		Email:        NormalizeEmail(p.Email),
		PasswordHash: p.PasswordHash,
		Name:         strings.TrimSpace(p.Name),
		Genre:        genre,
		Country:      strings.TrimSpace(p.Country),
		UserType:     p.UserType,
		CreatedAt:    now,
	}
}

// NormalizeEmail はメールアドレスを比較用に正規化する（前後空白除去・小文字化）。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Session はユーザーのログインセッションを表す。
// 有効期限は作成時点からの絶対時刻で、アクセスによる延長は行わない。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
