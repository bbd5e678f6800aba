// Package directory は音楽業界の企業・団体ディレクトリを提供する。
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

// TextSanitizer は利用者が投稿した文字列をプレーンテキストに正規化する。
type TextSanitizer interface {
	Text(raw string) string
}

// Service はディレクトリのサービス層。
type Service struct {
	repo      repository.DirectoryRepository
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.DirectoryRepository, sanitizer TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は絞り込み条件に一致するエントリを返す。
func (s *Service) List(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error) {
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリ一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// Get は指定IDのエントリを返す。存在しない場合はNOT_FOUNDのAPIErrorを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.DirectoryEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリエントリの取得に失敗しました: %w", err)
	}
	if entry == nil {
		return nil, model.NewDirectoryEntryNotFoundError(id)
	}
	return entry, nil
}

// Create は掲載申請を未承認のエントリとして保存する。
// 名前と説明はHTMLを除去してから保存する。WebサイトはhttpまたはhttpsのURLに限る。
func (s *Service) Create(ctx context.Context, in model.NewDirectoryEntryParams) (*model.DirectoryEntry, error) {
	in.Name = s.sanitizer.Text(in.Name)
	in.Description = s.sanitizer.Text(in.Description)
	if in.Name == "" {
		return nil, model.NewValidationError(map[string]string{"name": "must not be empty"})
	}
	in.Website = strings.TrimSpace(in.Website)
	if in.Website != "" && !isWebURL(in.Website) {
		return nil, model.NewValidationError(map[string]string{"website": "must be an http or https URL"})
	}

	created, err := s.repo.Create(ctx, model.NewDirectoryEntry(in, s.now()))
	if err != nil {
		return nil, fmt.Errorf("ディレクトリエントリの作成に失敗しました: %w", err)
	}

	slog.Info("directory entry submitted",
		slog.Int64("entry_id", created.ID),
		slog.String("type", string(created.Type)),
	)
	return created, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
