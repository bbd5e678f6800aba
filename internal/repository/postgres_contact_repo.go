package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/musicomply/internal/model"
)

// PostgresSubscriberRepo はPostgreSQLを使用した購読者リポジトリ。
type PostgresSubscriberRepo struct {
	db *sql.DB
}

// NewPostgresSubscriberRepo はPostgresSubscriberRepoを生成する。
func NewPostgresSubscriberRepo(db *sql.DB) *PostgresSubscriberRepo {
	return &PostgresSubscriberRepo{db: db}
}

// FindByEmail はメールアドレスで購読者を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriberRepo) FindByEmail(ctx context.Context, email string) (*model.Subscriber, error) {
	s := &model.Subscriber{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM newsletter_subscribers WHERE lower(email) = $1`,
		model.NormalizeEmail(email),
	).Scan(&s.ID, &s.Email, &s.Name, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriber: %w", err)
	}
	return s, nil
}

// Create は購読者を保存する。重複時はmodel.ErrDuplicateSubscriberを返す。
func (r *PostgresSubscriberRepo) Create(ctx context.Context, subscriber model.Subscriber) (*model.Subscriber, error) {
	subscriber.Email = model.NormalizeEmail(subscriber.Email)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO newsletter_subscribers (email, name, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		subscriber.Email, subscriber.Name, subscriber.CreatedAt,
	).Scan(&subscriber.ID)
	if _, ok := uniqueViolation(err); ok {
		return nil, model.ErrDuplicateSubscriber
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert subscriber: %w", err)
	}
	return &subscriber, nil
}

// PostgresContactMessageRepo はPostgreSQLを使用したお問い合わせリポジトリ。
type PostgresContactMessageRepo struct {
	db *sql.DB
}

// NewPostgresContactMessageRepo はPostgresContactMessageRepoを生成する。
func NewPostgresContactMessageRepo(db *sql.DB) *PostgresContactMessageRepo {
	return &PostgresContactMessageRepo{db: db}
}

// Create はメッセージを保存する。
func (r *PostgresContactMessageRepo) Create(ctx context.Context, message model.ContactMessage) (*model.ContactMessage, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO contact_messages (name, email, subject, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		message.Name, message.Email, message.Subject, message.Message, message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact message: %w", err)
	}
	return &message, nil
}

// List は全メッセージを新しい順で返す。
func (r *PostgresContactMessageRepo) List(ctx context.Context) ([]*model.ContactMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, subject, message, created_at FROM contact_messages ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	defer rows.Close()

	out := []*model.ContactMessage{}
	for rows.Next() {
		m := &model.ContactMessage{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contact messages: %w", err)
	}
	return out, nil
}

// compile-time interface check
var (
	_ SubscriberRepository     = (*PostgresSubscriberRepo)(nil)
	_ ContactMessageRepository = (*PostgresContactMessageRepo)(nil)
)
