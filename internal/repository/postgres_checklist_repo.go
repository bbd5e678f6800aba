package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/musicomply/internal/model"
)

// PostgresChecklistItemRepo はPostgreSQLを使用したチェック項目リポジトリ。
type PostgresChecklistItemRepo struct {
	db *sql.DB
}

// NewPostgresChecklistItemRepo はPostgresChecklistItemRepoを生成する。
func NewPostgresChecklistItemRepo(db *sql.DB) *PostgresChecklistItemRepo {
	return &PostgresChecklistItemRepo{db: db}
}

// ListAll は全項目を種別・表示順で返す。
func (r *PostgresChecklistItemRepo) ListAll(ctx context.Context) ([]*model.ComplianceChecklistItem, error) {
	return r.list(ctx,
		`SELECT id, type, category, title, description, sort_order, required
		 FROM compliance_checklist_items
		 ORDER BY type, sort_order, id`)
}

// ListByType は指定種別の項目を表示順で返す。
func (r *PostgresChecklistItemRepo) ListByType(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error) {
	return r.list(ctx,
		`SELECT id, type, category, title, description, sort_order, required
		 FROM compliance_checklist_items
		 WHERE type = $1
		 ORDER BY sort_order, id`, string(itemType))
}

// CountByType は指定種別の項目数を返す。
func (r *PostgresChecklistItemRepo) CountByType(ctx context.Context, itemType model.UserType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM compliance_checklist_items WHERE type = $1`, string(itemType),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count checklist items: %w", err)
	}
	return n, nil
}

func (r *PostgresChecklistItemRepo) list(ctx context.Context, query string, args ...any) ([]*model.ComplianceChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer rows.Close()

	var items []*model.ComplianceChecklistItem
	for rows.Next() {
		it := &model.ComplianceChecklistItem{}
		var itemType string
		if err := rows.Scan(&it.ID, &itemType, &it.Category, &it.Title, &it.Description, &it.SortOrder, &it.Required); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		it.Type = model.UserType(itemType)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checklist items: %w", err)
	}
	return items, nil
}

const userChecklistColumns = `id, user_id, type, completed_items, total_items, status, notes, created_at, updated_at`

// PostgresUserChecklistRepo はPostgreSQLを使用したユーザーチェックリストリポジトリ。
// 完了項目IDはBIGINT[]列で保持する。
type PostgresUserChecklistRepo struct {
	db *sql.DB
}

// NewPostgresUserChecklistRepo はPostgresUserChecklistRepoを生成する。
func NewPostgresUserChecklistRepo(db *sql.DB) *PostgresUserChecklistRepo {
	return &PostgresUserChecklistRepo{db: db}
}

// FindByID は指定IDのチェックリストを取得する。見つからない場合はnilを返す。
func (r *PostgresUserChecklistRepo) FindByID(ctx context.Context, id int64) (*model.UserChecklist, error) {
	c, err := scanUserChecklist(r.db.QueryRowContext(ctx,
		`SELECT `+userChecklistColumns+` FROM user_checklists WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find checklist: %w", err)
	}
	return c, nil
}

// ListByUserID はユーザーのチェックリストをID昇順で返す。
func (r *PostgresUserChecklistRepo) ListByUserID(ctx context.Context, userID int64) ([]*model.UserChecklist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userChecklistColumns+` FROM user_checklists WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklists: %w", err)
	}
	defer rows.Close()

	out := []*model.UserChecklist{}
	for rows.Next() {
		c, err := scanUserChecklist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checklists: %w", err)
	}
	return out, nil
}

// Create はチェックリストを保存し、採番されたIDを設定して返す。
func (r *PostgresUserChecklistRepo) Create(ctx context.Context, checklist model.UserChecklist) (*model.UserChecklist, error) {
	checklist = checklist.Clone()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO user_checklists (user_id, type, completed_items, total_items, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		checklist.UserID, string(checklist.Type), pq.Array(checklist.CompletedItems), checklist.TotalItems,
		string(checklist.Status), checklist.Notes, checklist.CreatedAt, checklist.UpdatedAt,
	).Scan(&checklist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert checklist: %w", err)
	}
	return &checklist, nil
}

// Update は完了項目・ステータス・メモ・更新日時を上書きする。存在しない場合はnilを返す。
func (r *PostgresUserChecklistRepo) Update(ctx context.Context, checklist model.UserChecklist) (*model.UserChecklist, error) {
	c, err := scanUserChecklist(r.db.QueryRowContext(ctx,
		`UPDATE user_checklists
		 SET completed_items = $2, status = $3, notes = $4, updated_at = $5
		 WHERE id = $1
		 RETURNING `+userChecklistColumns,
		checklist.ID, pq.Array(checklist.CompletedItems), string(checklist.Status), checklist.Notes, checklist.UpdatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update checklist: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserChecklist(row rowScanner) (*model.UserChecklist, error) {
	c := &model.UserChecklist{}
	var checklistType, status string
	var completed pq.Int64Array
	if err := row.Scan(&c.ID, &c.UserID, &checklistType, &completed, &c.TotalItems, &status, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = model.UserType(checklistType)
	c.Status = model.ChecklistStatus(status)
	c.CompletedItems = []int64(completed)
	if c.CompletedItems == nil {
		c.CompletedItems = []int64{}
	}
	return c, nil
}

// compile-time interface check
var (
	_ ChecklistItemRepository = (*PostgresChecklistItemRepo)(nil)
	_ UserChecklistRepository = (*PostgresUserChecklistRepo)(nil)
)
