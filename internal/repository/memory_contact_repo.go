package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/musicomply/internal/model"
)

// MemorySubscriberRepo はニュースレター購読者のインメモリ実装。メールアドレスで一意。
type MemorySubscriberRepo struct {
	mu          sync.RWMutex
	nextID      int64
	subscribers map[int64]model.Subscriber
	byEmail     map[string]int64
}

// NewMemorySubscriberRepo はMemorySubscriberRepoを生成する。
func NewMemorySubscriberRepo() *MemorySubscriberRepo {
	return &MemorySubscriberRepo{
		nextID:      1,
		subscribers: make(map[int64]model.Subscriber),
		byEmail:     make(map[string]int64),
	}
}

// FindByEmail はメールアドレスで購読者を検索する。見つからない場合はnilを返す。
func (r *MemorySubscriberRepo) FindByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	s := r.subscribers[id]
	return &s, nil
}

// Create はIDを採番して購読者を保存する。重複時はmodel.ErrDuplicateSubscriberを返す。
func (r *MemorySubscriberRepo) Create(ctx context.Context, subscriber model.Subscriber) (*model.Subscriber, error) {
	key := model.NormalizeEmail(subscriber.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return nil, model.ErrDuplicateSubscriber
	}

	subscriber.ID = r.nextID
	r.nextID++
	r.subscribers[subscriber.ID] = subscriber
	r.byEmail[key] = subscriber.ID
	return &subscriber, nil
}

// MemoryContactMessageRepo はお問い合わせメッセージのインメモリ実装。
type MemoryContactMessageRepo struct {
	mu       sync.RWMutex
	nextID   int64
	messages map[int64]model.ContactMessage
}

// NewMemoryContactMessageRepo はMemoryContactMessageRepoを生成する。
func NewMemoryContactMessageRepo() *MemoryContactMessageRepo {
	return &MemoryContactMessageRepo{
		nextID:   1,
		messages: make(map[int64]model.ContactMessage),
	}
}

// Create はIDを採番してメッセージを保存する。
func (r *MemoryContactMessageRepo) Create(ctx context.Context, message model.ContactMessage) (*model.ContactMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = r.nextID
	r.nextID++
	r.messages[message.ID] = message
	return &message, nil
}

// List は全メッセージを新しい順で返す。
func (r *MemoryContactMessageRepo) List(ctx context.Context) ([]*model.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.ContactMessage, 0, len(r.messages))
	for _, m := range r.messages {
		cp := m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// compile-time interface check
var (
	_ SubscriberRepository     = (*MemorySubscriberRepo)(nil)
	_ ContactMessageRepository = (*MemoryContactMessageRepo)(nil)
)
