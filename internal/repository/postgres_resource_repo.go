package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/musicomply/internal/model"
)

const resourceColumns = `id, title, description, url, category, type, source, published_at, created_at`

// PostgresResourceRepo はPostgreSQLを使用したリソースリポジトリ。URLで一意。
type PostgresResourceRepo struct {
	db *sql.DB
}

// NewPostgresResourceRepo はPostgresResourceRepoを生成する。
func NewPostgresResourceRepo(db *sql.DB) *PostgresResourceRepo {
	return &PostgresResourceRepo{db: db}
}

// List は絞り込み条件に一致するリソースを新しい順で返す。
func (r *PostgresResourceRepo) List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+`
		 FROM resources
		 WHERE ($1 = '' OR lower(category) = lower($1))
		   AND ($2 = '' OR type = $2)
		 ORDER BY COALESCE(published_at, created_at) DESC, id DESC`,
		filter.Category, string(filter.Type),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	out := []*model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}
	return out, nil
}

// FindByID は指定IDのリソースを取得する。見つからない場合はnilを返す。
func (r *PostgresResourceRepo) FindByID(ctx context.Context, id int64) (*model.Resource, error) {
	return r.findOne(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
}

// FindByURL はURLでリソースを検索する。見つからない場合はnilを返す。
func (r *PostgresResourceRepo) FindByURL(ctx context.Context, url string) (*model.Resource, error) {
	return r.findOne(ctx, `SELECT `+resourceColumns+` FROM resources WHERE url = $1`, url)
}

// Create はリソースを保存し、採番されたIDを設定して返す。
func (r *PostgresResourceRepo) Create(ctx context.Context, resource model.Resource) (*model.Resource, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO resources (title, description, url, category, type, source, published_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		resource.Title, resource.Description, resource.URL, resource.Category,
		string(resource.Type), resource.Source, resource.PublishedAt, resource.CreatedAt,
	).Scan(&resource.ID)
	if _, ok := uniqueViolation(err); ok {
		return nil, model.ErrDuplicateResourceURL
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert resource: %w", err)
	}
	return &resource, nil
}

// Update は既存リソースを上書きする。存在しない場合はnilを返す。
func (r *PostgresResourceRepo) Update(ctx context.Context, resource model.Resource) (*model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`UPDATE resources
		 SET title = $2, description = $3, url = $4, category = $5, type = $6, source = $7, published_at = $8
		 WHERE id = $1
		 RETURNING `+resourceColumns,
		resource.ID, resource.Title, resource.Description, resource.URL, resource.Category,
		string(resource.Type), resource.Source, resource.PublishedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if _, ok := uniqueViolation(err); ok {
		return nil, model.ErrDuplicateResourceURL
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update resource: %w", err)
	}
	return res, nil
}

func (r *PostgresResourceRepo) findOne(ctx context.Context, query string, arg any) (*model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}
	return res, nil
}

func scanResource(row rowScanner) (*model.Resource, error) {
	res := &model.Resource{}
	var resourceType string
	var publishedAt sql.NullTime
	if err := row.Scan(&res.ID, &res.Title, &res.Description, &res.URL, &res.Category,
		&resourceType, &res.Source, &publishedAt, &res.CreatedAt); err != nil {
		return nil, err
	}
	res.Type = model.ResourceType(resourceType)
	if publishedAt.Valid {
		t := publishedAt.Time
		res.PublishedAt = &t
	}
	return res, nil
}

// compile-time interface check
var _ ResourceRepository = (*PostgresResourceRepo)(nil)
