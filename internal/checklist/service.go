// Package checklist はコンプライアンスチェック項目とユーザーごとの進捗管理を提供する。
package checklist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

// UserFinder はチェックリスト作成時の所有者確認に使うユーザー参照インターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// CreateInput はチェックリスト作成の入力。
// Typeが空の場合は対象ユーザーのアカウント種別を用いる。
type CreateInput struct {
	UserID int64
	Type   model.UserType
	Notes  string
}

// UpdateInput はチェックリスト更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	CompletedItems *[]int64
	Notes          *string
	Status         *model.ChecklistStatus
}

// Service はチェックリストのサービス層。
// 読み取り・作成・更新のいずれも、要求者と所有者が一致しない場合はFORBIDDENを返す。
type Service struct {
	items      repository.ChecklistItemRepository
	checklists repository.UserChecklistRepository
	users      UserFinder
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	items repository.ChecklistItemRepository,
	checklists repository.UserChecklistRepository,
	users UserFinder,
) *Service {
	return &Service{
		items:      items,
		checklists: checklists,
		users:      users,
		now:        time.Now,
	}
}

// ListItems はチェック項目を表示順で返す。itemTypeが空なら全種別を返す。
func (s *Service) ListItems(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error) {
	if itemType == "" {
		items, err := s.items.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("チェック項目の取得に失敗しました: %w", err)
		}
		return items, nil
	}
	if !itemType.Valid() {
		return nil, model.NewValidationError(map[string]string{
			"type": "must be one of: artist, label",
		})
	}

	items, err := s.items.ListByType(ctx, itemType)
	if err != nil {
		return nil, fmt.Errorf("チェック項目の取得に失敗しました: %w", err)
	}
	return items, nil
}

// ListForUser はuserIDのチェックリスト一覧を返す。
func (s *Service) ListForUser(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error) {
	if requesterID != userID {
		return nil, model.NewForbiddenError()
	}

	lists, err := s.checklists.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("チェックリスト一覧の取得に失敗しました: %w", err)
	}
	return lists, nil
}

// Create はチェックリストを作成する。
// 対象ユーザーが存在しなければUSER_NOT_FOUND、要求者以外ならFORBIDDENを返す。
// 総項目数は作成時点の種別ごとの項目数とする。
func (s *Service) Create(ctx context.Context, requesterID int64, in CreateInput) (*model.UserChecklist, error) {
	owner, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewUserNotFoundError()
	}
	if owner.ID != requesterID {
		return nil, model.NewForbiddenError()
	}

	checklistType := in.Type
	if checklistType == "" {
		checklistType = owner.UserType
	}
	if !checklistType.Valid() {
		return nil, model.NewValidationError(map[string]string{
			"type": "must be one of: artist, label",
		})
	}

	total, err := s.items.CountByType(ctx, checklistType)
	if err != nil {
		return nil, fmt.Errorf("チェック項目数の取得に失敗しました: %w", err)
	}

	created, err := s.checklists.Create(ctx,
		model.NewUserChecklist(owner.ID, checklistType, total, in.Notes, s.now()))
	if err != nil {
		return nil, fmt.Errorf("チェックリストの作成に失敗しました: %w", err)
	}

	slog.Info("checklist created",
		slog.Int64("checklist_id", created.ID),
		slog.Int64("user_id", owner.ID),
		slog.String("type", string(checklistType)),
	)
	return created, nil
}

// Update はチェックリストを部分更新する。
// 完了項目は重複を除いて昇順に正規化し、チェックリストの種別に属さないIDを含む場合は
// VALIDATION_FAILEDを返す。Statusが指定されない場合は完了数から導出する。
func (s *Service) Update(ctx context.Context, requesterID, checklistID int64, in UpdateInput) (*model.UserChecklist, error) {
	current, err := s.checklists.FindByID(ctx, checklistID)
	if err != nil {
		return nil, fmt.Errorf("チェックリストの取得に失敗しました: %w", err)
	}
	if current == nil {
		return nil, model.NewChecklistNotFoundError(checklistID)
	}
	if current.UserID != requesterID {
		return nil, model.NewForbiddenError()
	}

	next := current.Clone()

	if in.CompletedItems != nil {
		completed := model.NormalizeItemIDs(*in.CompletedItems)
		if err := s.checkItemsBelongTo(ctx, next.Type, completed); err != nil {
			return nil, err
		}
		next.CompletedItems = completed
	}
	if in.Notes != nil {
		next.Notes = *in.Notes
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, model.NewValidationError(map[string]string{
				"status": "must be one of: not_started, in_progress, completed",
			})
		}
		next.Status = *in.Status
	} else {
		next.Status = model.DeriveChecklistStatus(len(next.CompletedItems), next.TotalItems)
	}
	next.UpdatedAt = s.now()

	updated, err := s.checklists.Update(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("チェックリストの更新に失敗しました: %w", err)
	}
	if updated == nil {
		// 取得から更新までの間に削除された
		return nil, model.NewChecklistNotFoundError(checklistID)
	}
	return updated, nil
}

// checkItemsBelongTo はidsがすべてitemTypeのチェック項目であることを確認する。
func (s *Service) checkItemsBelongTo(ctx context.Context, itemType model.UserType, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	items, err := s.items.ListByType(ctx, itemType)
	if err != nil {
		return fmt.Errorf("チェック項目の取得に失敗しました: %w", err)
	}
	known := make(map[int64]struct{}, len(items))
	for _, it := range items {
		known[it.ID] = struct{}{}
	}

	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return model.NewValidationError(map[string]string{
				"completedItems": fmt.Sprintf("item %d is not part of the %s checklist", id, itemType),
			})
		}
	}
	return nil
}
