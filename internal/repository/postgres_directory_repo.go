package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/musicomply/internal/model"
)

const directoryColumns = `id, name, type, description, website, email, country, verified, created_at`

// PostgresDirectoryRepo はPostgreSQLを使用したディレクトリリポジトリ。
type PostgresDirectoryRepo struct {
	db *sql.DB
}

// NewPostgresDirectoryRepo はPostgresDirectoryRepoを生成する。
func NewPostgresDirectoryRepo(db *sql.DB) *PostgresDirectoryRepo {
	return &PostgresDirectoryRepo{db: db}
}

// List は絞り込み条件に一致するエントリを名前順で返す。
// 空の条件は無視する。
func (r *PostgresDirectoryRepo) List(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+directoryColumns+`
		 FROM directory_entries
		 WHERE ($1 = '' OR type = $1)
		   AND ($2 = '' OR lower(country) = lower($2))
		   AND ($3 = '' OR strpos(lower(name), $3) > 0 OR strpos(lower(description), $3) > 0)
		 ORDER BY lower(name), id`,
		string(filter.Type), filter.Country, strings.ToLower(strings.TrimSpace(filter.Search)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory entries: %w", err)
	}
	defer rows.Close()

	out := []*model.DirectoryEntry{}
	for rows.Next() {
		e, err := scanDirectoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate directory entries: %w", err)
	}
	return out, nil
}

// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
func (r *PostgresDirectoryRepo) FindByID(ctx context.Context, id int64) (*model.DirectoryEntry, error) {
	e, err := scanDirectoryEntry(r.db.QueryRowContext(ctx,
		`SELECT `+directoryColumns+` FROM directory_entries WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find directory entry: %w", err)
	}
	return e, nil
}

// Create はエントリを保存し、採番されたIDを設定して返す。
func (r *PostgresDirectoryRepo) Create(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO directory_entries (name, type, description, website, email, country, verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		entry.Name, string(entry.Type), entry.Description, entry.Website, entry.Email,
		entry.Country, entry.Verified, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert directory entry: %w", err)
	}
	return &entry, nil
}

func scanDirectoryEntry(row rowScanner) (*model.DirectoryEntry, error) {
	e := &model.DirectoryEntry{}
	var entryType string
	if err := row.Scan(&e.ID, &e.Name, &entryType, &e.Description, &e.Website, &e.Email, &e.Country, &e.Verified, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = model.DirectoryEntryType(entryType)
	return e, nil
}

// compile-time interface check
var _ DirectoryRepository = (*PostgresDirectoryRepo)(nil)
