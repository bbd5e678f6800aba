// Package auth はパスワードによる登録・ログインとパスワードハッシュを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

// RegisterInput はユーザー登録の入力。形式の検証はハンドラ層で済んでいる前提。
type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Password string
	UserType model.UserType
	Genre    string
	Country  string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, hasher PasswordHasher) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		now:    time.Now,
	}
}

// Register は新規ユーザーを登録する。
// メールアドレス・ユーザー名の重複はそれぞれ専用のAPIErrorを返す。
// 未知のアカウント種別はVALIDATION_FAILED。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if !in.UserType.Valid() {
		return nil, model.NewValidationError(map[string]string{"userType": "must be one of artist, label"})
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	existing, err = s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUsernameError()
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.NewUser(model.NewUserParams{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Genre:        in.Genre,
		Country:      in.Country,
		UserType:     in.UserType,
	}, s.now())

	// 事前確認と保存の間に同じ値で登録された場合はストアの一意制約で検出する
	created, err := s.users.Create(ctx, user)
	switch {
	case errors.Is(err, model.ErrDuplicateEmail):
		return nil, model.NewDuplicateEmailError()
	case errors.Is(err, model.ErrDuplicateUsername):
		return nil, model.NewDuplicateUsernameError()
	case err != nil:
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", created.ID),
		slog.String("user_type", string(created.UserType)),
	)
	return created, nil
}

// Login はメールアドレスとパスワードでユーザーを認証する。
// 未登録のメールアドレスと誤ったパスワードは同じエラーを返し、
// 未登録の場合もダミーのハッシュ検証を行って応答時間を揃える。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		if dummy := s.dummy(ctx); dummy != "" {
			if _, err := s.hasher.Verify(ctx, password, dummy); err != nil {
				return nil, fmt.Errorf("failed to verify password: %w", err)
			}
		}
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	return user, nil
}

// dummy は未登録ユーザーのログイン時に検証対象とするハッシュを返す。初回呼び出し時に生成する。
func (s *Service) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			slog.Error("failed to generate dummy password", slog.String("error", err.Error()))
			return
		}
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), hex.EncodeToString(b))
		if err != nil {
			slog.Error("failed to generate dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
