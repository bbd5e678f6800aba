package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/hitoshi/musicomply/internal/model"
)

// MemoryUserRepo はプロセス内メモリを使用したユーザーリポジトリ。
// ID採番から挿入までを1つのクリティカルセクションで行い、
// 同時登録でもIDとメールアドレス・ユーザー名の一意性が保たれる。
type MemoryUserRepo struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]model.User
	byEmail    map[string]int64
	byUsername map[string]int64
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		nextID:     1,
		users:      make(map[int64]model.User),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
	}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return nil, nil
	}
	return cloneUser(r.users[id]), nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(r.users[id]), nil
}

// Create はIDを採番してユーザーを保存する。
func (r *MemoryUserRepo) Create(ctx context.Context, user model.User) (*model.User, error) {
	emailKey := model.NormalizeEmail(user.Email)
	nameKey := usernameKey(user.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[emailKey]; exists {
		return nil, model.ErrDuplicateEmail
	}
	if _, exists := r.byUsername[nameKey]; exists {
		return nil, model.ErrDuplicateUsername
	}

	user.ID = r.nextID
	r.nextID++

	stored := *cloneUser(user)
	r.users[user.ID] = stored
	r.byEmail[emailKey] = user.ID
	r.byUsername[nameKey] = user.ID

	return cloneUser(stored), nil
}

// usernameKey はユーザー名の一意性判定用キーを返す。
func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// cloneUser はポインタフィールドを含めてユーザーをコピーする。
func cloneUser(u model.User) *model.User {
	cp := u
	if u.Genre != nil {
		g := *u.Genre
		cp.Genre = &g
	}
	return &cp
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
