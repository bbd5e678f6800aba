package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
)

// MemoryResourceRepo は学習リソースのインメモリ実装。URLで一意。
type MemoryResourceRepo struct {
	mu        sync.RWMutex
	nextID    int64
	resources map[int64]model.Resource
	byURL     map[string]int64
}

// NewMemoryResourceRepo はMemoryResourceRepoを生成する。
func NewMemoryResourceRepo() *MemoryResourceRepo {
	return &MemoryResourceRepo{
		nextID:    1,
		resources: make(map[int64]model.Resource),
		byURL:     make(map[string]int64),
	}
}

// List は絞り込み条件に一致するリソースを新しい順で返す。
// 公開日時がない場合は作成日時で比較する。
func (r *MemoryResourceRepo) List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		cp := cloneResource(res)
		if filter.Matches(cp) {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := sortTime(out[i]), sortTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// FindByID は指定IDのリソースを取得する。見つからない場合はnilを返す。
func (r *MemoryResourceRepo) FindByID(ctx context.Context, id int64) (*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, nil
	}
	return cloneResource(res), nil
}

// FindByURL はURLでリソースを検索する。見つからない場合はnilを返す。
func (r *MemoryResourceRepo) FindByURL(ctx context.Context, url string) (*model.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURL[url]
	if !ok {
		return nil, nil
	}
	return cloneResource(r.resources[id]), nil
}

// Create はIDを採番してリソースを保存する。URL重複時はmodel.ErrDuplicateResourceURLを返す。
func (r *MemoryResourceRepo) Create(ctx context.Context, resource model.Resource) (*model.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byURL[resource.URL]; exists {
		return nil, model.ErrDuplicateResourceURL
	}

	resource.ID = r.nextID
	r.nextID++
	r.resources[resource.ID] = *cloneResource(resource)
	r.byURL[resource.URL] = resource.ID
	return cloneResource(resource), nil
}

// Update は既存リソースを上書きする。存在しない場合はnilを返す。
// URLの変更で他リソースと重複する場合はmodel.ErrDuplicateResourceURLを返す。
func (r *MemoryResourceRepo) Update(ctx context.Context, resource model.Resource) (*model.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.resources[resource.ID]
	if !ok {
		return nil, nil
	}
	if current.URL != resource.URL {
		if _, exists := r.byURL[resource.URL]; exists {
			return nil, model.ErrDuplicateResourceURL
		}
		delete(r.byURL, current.URL)
		r.byURL[resource.URL] = resource.ID
	}
	r.resources[resource.ID] = *cloneResource(resource)
	return cloneResource(resource), nil
}

func cloneResource(res model.Resource) *model.Resource {
	cp := res
	if res.PublishedAt != nil {
		t := *res.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

func sortTime(res *model.Resource) time.Time {
	if res.PublishedAt != nil {
		return *res.PublishedAt
	}
	return res.CreatedAt
}

// compile-time interface check
var _ ResourceRepository = (*MemoryResourceRepo)(nil)
