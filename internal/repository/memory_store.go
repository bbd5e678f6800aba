package repository

import (
	"context"
	"fmt"
	"time"
)

// NewMemoryStore はインメモリ実装で構成したStoreを生成し、初期データを投入する。
func NewMemoryStore(maxSessions int) (*Store, error) {
	items := NewMemoryChecklistItemRepo()
	for _, it := range DefaultChecklistItems() {
		items.Add(it)
	}

	ctx := context.Background()
	now := time.Now()

	directory := NewMemoryDirectoryRepo()
	for _, e := range DefaultDirectoryEntries(now) {
		if _, err := directory.Create(ctx, e); err != nil {
			return nil, fmt.Errorf("failed to seed directory: %w", err)
		}
	}

	resources := NewMemoryResourceRepo()
	for _, res := range DefaultResources(now) {
		if _, err := resources.Create(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to seed resources: %w", err)
		}
	}

	return &Store{
		Users:          NewMemoryUserRepo(),
		Sessions:       NewMemorySessionRepo(maxSessions),
		ChecklistItems: items,
		UserChecklists: NewMemoryUserChecklistRepo(),
		Directory:      directory,
		Resources:      resources,
		Subscribers:    NewMemorySubscriberRepo(),
		Messages:       NewMemoryContactMessageRepo(),
	}, nil
}
