package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// NewPostgresStore はPostgreSQL実装で構成したStoreを生成する。
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:          NewPostgresUserRepo(db),
		Sessions:       NewPostgresSessionRepo(db),
		ChecklistItems: NewPostgresChecklistItemRepo(db),
		UserChecklists: NewPostgresUserChecklistRepo(db),
		Directory:      NewPostgresDirectoryRepo(db),
		Resources:      NewPostgresResourceRepo(db),
		Subscribers:    NewPostgresSubscriberRepo(db),
		Messages:       NewPostgresContactMessageRepo(db),
	}
}

// SeedPostgres は初期データを投入する。既存行は一意制約で読み飛ばすため繰り返し実行できる。
func SeedPostgres(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, it := range DefaultChecklistItems() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO compliance_checklist_items (type, category, title, description, sort_order, required)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT DO NOTHING`,
			string(it.Type), it.Category, it.Title, it.Description, it.SortOrder, it.Required,
		)
		if err != nil {
			return fmt.Errorf("failed to seed checklist item: %w", err)
		}
	}

	now := time.Now()
	for _, e := range DefaultDirectoryEntries(now) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO directory_entries (name, type, description, website, email, country, verified, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT DO NOTHING`,
			e.Name, string(e.Type), e.Description, e.Website, e.Email, e.Country, e.Verified, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to seed directory entry: %w", err)
		}
	}

	for _, res := range DefaultResources(now) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO resources (title, description, url, category, type, source, published_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT DO NOTHING`,
			res.Title, res.Description, res.URL, res.Category, string(res.Type), res.Source, res.PublishedAt, res.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to seed resource: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
