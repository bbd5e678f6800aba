// Package resource はコンプライアンス関連の記事・ガイドの管理を提供する。
// 手動登録とフィード取り込みの両方がURLを同一性のキーとして扱う。
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

// TextSanitizer は利用者が投稿した文字列をプレーンテキストに正規化する。
type TextSanitizer interface {
	Text(raw string) string
}

// Service はリソースのサービス層。
type Service struct {
	repo      repository.ResourceRepository
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ResourceRepository, sanitizer TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は絞り込み条件に一致するリソースを新しい順で返す。
func (s *Service) List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	resources, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("リソース一覧の取得に失敗しました: %w", err)
	}
	return resources, nil
}

// Get は指定IDのリソースを返す。存在しない場合はNOT_FOUNDのAPIErrorを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Resource, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("リソースの取得に失敗しました: %w", err)
	}
	if res == nil {
		return nil, model.NewResourceNotFoundError(id)
	}
	return res, nil
}

// Create はリソースを登録する。URLが登録済みの場合はDUPLICATE_RESOURCEを返す。
// 投稿されたテキストはHTMLを除去してから保存する。
// フィード由来のエントリは取り込み側で正規化済みのためUpsertByURLでは行わない。
func (s *Service) Create(ctx context.Context, in model.NewResourceParams) (*model.Resource, error) {
	in.Title = s.sanitizer.Text(in.Title)
	in.Description = s.sanitizer.Text(in.Description)
	in.Source = s.sanitizer.Text(in.Source)
	if in.Title == "" {
		return nil, model.NewValidationError(map[string]string{"title": "must not be empty"})
	}

	created, err := s.repo.Create(ctx, model.NewResource(in, s.now()))
	if err != nil {
		if errors.Is(err, model.ErrDuplicateResourceURL) {
			return nil, model.NewDuplicateResourceError()
		}
		return nil, fmt.Errorf("リソースの作成に失敗しました: %w", err)
	}
	return created, nil
}

// UpsertOutcome はUpsertByURLで行った書き込みの種類。
type UpsertOutcome int

const (
	UpsertUnchanged UpsertOutcome = iota
	UpsertCreated
	UpsertUpdated
)

// UpsertByURL はURLをキーにリソースを作成または更新する。
// 既存リソースはタイトル・説明・公開日時のみ更新し、内容に変化がなければ書き込まない。
func (s *Service) UpsertByURL(ctx context.Context, in model.NewResourceParams) (*model.Resource, UpsertOutcome, error) {
	incoming := model.NewResource(in, s.now())

	existing, err := s.repo.FindByURL(ctx, incoming.URL)
	if err != nil {
		return nil, UpsertUnchanged, fmt.Errorf("リソースの検索に失敗しました: %w", err)
	}

	if existing == nil {
		created, err := s.repo.Create(ctx, incoming)
		if err == nil {
			return created, UpsertCreated, nil
		}
		if !errors.Is(err, model.ErrDuplicateResourceURL) {
			return nil, UpsertUnchanged, fmt.Errorf("リソースの作成に失敗しました: %w", err)
		}
		// 並行する取り込みが先に作成した
		existing, err = s.repo.FindByURL(ctx, incoming.URL)
		if err != nil {
			return nil, UpsertUnchanged, fmt.Errorf("リソースの再検索に失敗しました: %w", err)
		}
		if existing == nil {
			return nil, UpsertUnchanged, fmt.Errorf("resource %s vanished after duplicate insert", incoming.URL)
		}
	}

	if !changed(existing, &incoming) {
		return existing, UpsertUnchanged, nil
	}

	next := *existing
	next.Title = incoming.Title
	next.Description = incoming.Description
	next.PublishedAt = incoming.PublishedAt

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, UpsertUnchanged, fmt.Errorf("リソースの更新に失敗しました: %w", err)
	}
	if updated == nil {
		return nil, UpsertUnchanged, fmt.Errorf("resource %d vanished during update", existing.ID)
	}

	slog.Debug("resource updated from feed",
		slog.Int64("resource_id", updated.ID),
		slog.String("url", updated.URL),
	)
	return updated, UpsertUpdated, nil
}

func changed(current, incoming *model.Resource) bool {
	if current.Title != incoming.Title || current.Description != incoming.Description {
		return true
	}
	switch {
	case current.PublishedAt == nil && incoming.PublishedAt == nil:
		return false
	case current.PublishedAt == nil || incoming.PublishedAt == nil:
		return true
	default:
		return !current.PublishedAt.Equal(*incoming.PublishedAt)
	}
}
