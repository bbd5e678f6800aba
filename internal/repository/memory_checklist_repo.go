package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/musicomply/internal/model"
)

// MemoryChecklistItemRepo はコンプライアンスチェック項目のインメモリ実装。
type MemoryChecklistItemRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]model.ComplianceChecklistItem
}

// NewMemoryChecklistItemRepo はMemoryChecklistItemRepoを生成する。
func NewMemoryChecklistItemRepo() *MemoryChecklistItemRepo {
	return &MemoryChecklistItemRepo{
		nextID: 1,
		items:  make(map[int64]model.ComplianceChecklistItem),
	}
}

// Add はIDを採番して項目を追加する。シードデータとテストで使用する。
func (r *MemoryChecklistItemRepo) Add(item model.ComplianceChecklistItem) *model.ComplianceChecklistItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.ID = r.nextID
	r.nextID++
	r.items[item.ID] = item
	cp := item
	return &cp
}

// ListAll は全項目を種別・表示順で返す。
func (r *MemoryChecklistItemRepo) ListAll(ctx context.Context) ([]*model.ComplianceChecklistItem, error) {
	return r.list(func(*model.ComplianceChecklistItem) bool { return true }), nil
}

// ListByType は指定種別の項目を表示順で返す。
func (r *MemoryChecklistItemRepo) ListByType(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error) {
	return r.list(func(it *model.ComplianceChecklistItem) bool { return it.Type == itemType }), nil
}

// CountByType は指定種別の項目数を返す。
func (r *MemoryChecklistItemRepo) CountByType(ctx context.Context, itemType model.UserType) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, it := range r.items {
		if it.Type == itemType {
			count++
		}
	}
	return count, nil
}

func (r *MemoryChecklistItemRepo) list(match func(*model.ComplianceChecklistItem) bool) []*model.ComplianceChecklistItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.ComplianceChecklistItem, 0, len(r.items))
	for _, it := range r.items {
		cp := it
		if match(&cp) {
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MemoryUserChecklistRepo はユーザーチェックリストのインメモリ実装。
type MemoryUserChecklistRepo struct {
	mu         sync.RWMutex
	nextID     int64
	checklists map[int64]model.UserChecklist
}

// NewMemoryUserChecklistRepo はMemoryUserChecklistRepoを生成する。
func NewMemoryUserChecklistRepo() *MemoryUserChecklistRepo {
	return &MemoryUserChecklistRepo{
		nextID:     1,
		checklists: make(map[int64]model.UserChecklist),
	}
}

// FindByID は指定IDのチェックリストを取得する。見つからない場合はnilを返す。
func (r *MemoryUserChecklistRepo) FindByID(ctx context.Context, id int64) (*model.UserChecklist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.checklists[id]
	if !ok {
		return nil, nil
	}
	cp := c.Clone()
	return &cp, nil
}

// ListByUserID はユーザーのチェックリストをID昇順で返す。
func (r *MemoryUserChecklistRepo) ListByUserID(ctx context.Context, userID int64) ([]*model.UserChecklist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.UserChecklist, 0)
	for _, c := range r.checklists {
		if c.UserID == userID {
			cp := c.Clone()
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create はIDを採番してチェックリストを保存する。
func (r *MemoryUserChecklistRepo) Create(ctx context.Context, checklist model.UserChecklist) (*model.UserChecklist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	checklist.ID = r.nextID
	r.nextID++
	r.checklists[checklist.ID] = checklist.Clone()

	cp := checklist.Clone()
	return &cp, nil
}

// Update は既存チェックリストを上書きする。存在しない場合はnilを返す。
func (r *MemoryUserChecklistRepo) Update(ctx context.Context, checklist model.UserChecklist) (*model.UserChecklist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.checklists[checklist.ID]; !ok {
		return nil, nil
	}
	r.checklists[checklist.ID] = checklist.Clone()

	cp := checklist.Clone()
	return &cp, nil
}

// compile-time interface check
var (
	_ ChecklistItemRepository = (*MemoryChecklistItemRepo)(nil)
	_ UserChecklistRepository = (*MemoryUserChecklistRepo)(nil)
)
