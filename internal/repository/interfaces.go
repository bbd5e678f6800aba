// Package repository はデータ永続化のインターフェースと実装を提供する。
// インメモリ実装（デフォルト）とPostgreSQL実装を同じインターフェースで差し替えられる。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はIDを採番してユーザーを保存し、採番済みのユーザーを返す。
	// メールアドレス重複時はmodel.ErrDuplicateEmail、
	// ユーザー名重複時はmodel.ErrDuplicateUsernameを返す。
	Create(ctx context.Context, user model.User) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID int64) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ChecklistItemRepository はコンプライアンスチェック項目の参照インターフェース。
type ChecklistItemRepository interface {
	// ListAll は全項目を種別・表示順で返す。
	ListAll(ctx context.Context) ([]*model.ComplianceChecklistItem, error)
	// ListByType は指定種別の項目を表示順で返す。
	ListByType(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error)
	// CountByType は指定種別の項目数を返す。
	CountByType(ctx context.Context, itemType model.UserType) (int, error)
}

// UserChecklistRepository はユーザーチェックリストの永続化インターフェース。
type UserChecklistRepository interface {
	// FindByID は指定IDのチェックリストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.UserChecklist, error)
	// ListByUserID はユーザーのチェックリストをID昇順で返す。
	ListByUserID(ctx context.Context, userID int64) ([]*model.UserChecklist, error)
	// Create はIDを採番してチェックリストを保存する。
	Create(ctx context.Context, checklist model.UserChecklist) (*model.UserChecklist, error)
	// Update は既存チェックリストを上書きする。存在しない場合はnilを返す。
	Update(ctx context.Context, checklist model.UserChecklist) (*model.UserChecklist, error)
}

// DirectoryRepository は企業ディレクトリの永続化インターフェース。
type DirectoryRepository interface {
	// List は絞り込み条件に一致するエントリを名前順で返す。
	List(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error)
	// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.DirectoryEntry, error)
	// Create はIDを採番してエントリを保存する。
	Create(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error)
}

// ResourceRepository は学習リソースの永続化インターフェース。
type ResourceRepository interface {
	// List は絞り込み条件に一致するリソースを新しい順で返す。
	List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error)
	// FindByID は指定IDのリソースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Resource, error)
	// FindByURL はURLでリソースを検索する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.Resource, error)
	// Create はIDを採番してリソースを保存する。URL重複時はmodel.ErrDuplicateResourceURLを返す。
	Create(ctx context.Context, resource model.Resource) (*model.Resource, error)
	// Update は既存リソースを上書きする。存在しない場合はnilを返す。
	Update(ctx context.Context, resource model.Resource) (*model.Resource, error)
}

// SubscriberRepository はニュースレター購読者の永続化インターフェース。
type SubscriberRepository interface {
	// FindByEmail はメールアドレスで購読者を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Subscriber, error)
	// Create はIDを採番して購読者を保存する。重複時はmodel.ErrDuplicateSubscriberを返す。
	Create(ctx context.Context, subscriber model.Subscriber) (*model.Subscriber, error)
}

// ContactMessageRepository はお問い合わせメッセージの永続化インターフェース。
type ContactMessageRepository interface {
	// Create はIDを採番してメッセージを保存する。
	Create(ctx context.Context, message model.ContactMessage) (*model.ContactMessage, error)
	// List は全メッセージを新しい順で返す。
	List(ctx context.Context) ([]*model.ContactMessage, error)
}

// Store はアプリケーションが使用する全リポジトリをまとめたもの。
// バックエンド（インメモリ/PostgreSQL）の選択はこの単位で行う。
type Store struct {
	Users          UserRepository
	Sessions       SessionRepository
	ChecklistItems ChecklistItemRepository
	UserChecklists UserChecklistRepository
	Directory      DirectoryRepository
	Resources      ResourceRepository
	Subscribers    SubscriberRepository
	Messages       ContactMessageRepository
}
