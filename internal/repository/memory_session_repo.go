package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
)

// DefaultMaxSessions はMemorySessionRepoが保持するセッション数の既定上限。
const DefaultMaxSessions = 10000

// MemorySessionRepo はプロセス内メモリを使用した上限付きセッションストア。
// 上限到達時は期限切れセッションを先に削除し、それでも満杯なら
// 有効期限が最も近いセッションを追い出す。
type MemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	max      int
	now      func() time.Time
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
// maxSessionsが0以下の場合はDefaultMaxSessionsを使用する。
func NewMemorySessionRepo(maxSessions int) *MemorySessionRepo {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &MemorySessionRepo{
		sessions: make(map[string]model.Session),
		max:      maxSessions,
		now:      time.Now,
	}
}

// Create はセッションを作成する。同一IDのセッションが存在する場合はエラーを返す。
func (r *MemorySessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("session already exists")
	}

	if len(r.sessions) >= r.max {
		r.purgeLocked(r.now())
	}
	if len(r.sessions) >= r.max {
		r.evictSoonestLocked()
	}

	r.sessions[session.ID] = *session
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *MemorySessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	if s.Expired(r.now()) {
		delete(r.sessions, id)
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MemorySessionRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
func (r *MemorySessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.purgeLocked(now), nil
}

// Len は保持しているセッション数を返す。テストおよびメトリクス用。
func (r *MemorySessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// purgeLocked は期限切れセッションを削除する。呼び出し側でロックを保持すること。
func (r *MemorySessionRepo) purgeLocked(now time.Time) int64 {
	var deleted int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted
}

// evictSoonestLocked は有効期限が最も近いセッションを1件削除する。
func (r *MemorySessionRepo) evictSoonestLocked() {
	var (
		victim string
		soon   time.Time
	)
	for id, s := range r.sessions {
		if victim == "" || s.ExpiresAt.Before(soon) {
			victim = id
			soon = s.ExpiresAt
		}
	}
	if victim != "" {
		delete(r.sessions, victim)
	}
}

// compile-time interface check
var _ SessionRepository = (*MemorySessionRepo)(nil)
