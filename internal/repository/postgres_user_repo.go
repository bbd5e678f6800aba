package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/musicomply/internal/model"
)

const userColumns = `id, username, email, password_hash, name, genre, country, user_type, created_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername はユーザー名で検索する（大文字小文字を区別しない）。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

// FindByEmail はメールアドレスで検索する（大文字小文字を区別しない）。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, model.NormalizeEmail(email))
}

// Create はユーザーを保存し、採番されたIDを設定して返す。
// 一意制約違反はインデックス名から重複項目を判別する。
func (r *PostgresUserRepo) Create(ctx context.Context, user model.User) (*model.User, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, name, genre, country, user_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		user.Username, model.NormalizeEmail(user.Email), user.PasswordHash, user.Name,
		user.Genre, user.Country, string(user.UserType), user.CreatedAt,
	).Scan(&user.ID)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "idx_users_username_lower" {
			return nil, model.ErrDuplicateUsername
		}
		return nil, model.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	var genre sql.NullString
	var userType string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Name,
		&genre, &user.Country, &userType, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if genre.Valid {
		user.Genre = &genre.String
	}
	user.UserType = model.UserType(userType)
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
