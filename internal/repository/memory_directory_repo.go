package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/musicomply/internal/model"
)

// MemoryDirectoryRepo は企業ディレクトリのインメモリ実装。
type MemoryDirectoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]model.DirectoryEntry
}

// NewMemoryDirectoryRepo はMemoryDirectoryRepoを生成する。
func NewMemoryDirectoryRepo() *MemoryDirectoryRepo {
	return &MemoryDirectoryRepo{
		nextID:  1,
		entries: make(map[int64]model.DirectoryEntry),
	}
}

// List は絞り込み条件に一致するエントリを名前順で返す。
func (r *MemoryDirectoryRepo) List(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.DirectoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		cp := e
		if filter.Matches(&cp) {
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
func (r *MemoryDirectoryRepo) FindByID(ctx context.Context, id int64) (*model.DirectoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Create はIDを採番してエントリを保存する。
func (r *MemoryDirectoryRepo) Create(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	r.entries[entry.ID] = entry
	return &entry, nil
}

// compile-time interface check
var _ DirectoryRepository = (*MemoryDirectoryRepo)(nil)
