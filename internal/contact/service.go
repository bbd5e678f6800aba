// Package contact はお問い合わせとニュースレター購読の受付を提供する。
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
)

// TextSanitizer は利用者が投稿した文字列をプレーンテキストに正規化する。
type TextSanitizer interface {
	Text(raw string) string
}

// MessageInput はお問い合わせの入力。
type MessageInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Service はお問い合わせ・購読のサービス層。
type Service struct {
	messages    repository.ContactMessageRepository
	subscribers repository.SubscriberRepository
	sanitizer   TextSanitizer
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	messages repository.ContactMessageRepository,
	subscribers repository.SubscriberRepository,
	sanitizer TextSanitizer,
) *Service {
	return &Service{
		messages:    messages,
		subscribers: subscribers,
		sanitizer:   sanitizer,
		now:         time.Now,
	}
}

// SubmitMessage はお問い合わせを保存する。
// 本文・件名・名前はHTMLを除去し、除去後に本文が空になった場合はVALIDATION_FAILEDを返す。
func (s *Service) SubmitMessage(ctx context.Context, in MessageInput) (*model.ContactMessage, error) {
	msg := model.NewContactMessage(
		s.sanitizer.Text(in.Name),
		in.Email,
		s.sanitizer.Text(in.Subject),
		s.sanitizer.Text(in.Message),
		s.now(),
	)
	if msg.Message == "" {
		return nil, model.NewValidationError(map[string]string{"message": "must not be empty"})
	}

	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("お問い合わせの保存に失敗しました: %w", err)
	}

	slog.Info("contact message received", slog.Int64("message_id", created.ID))
	return created, nil
}

// Subscribe はニュースレター購読を登録する。
// 登録済みのメールアドレス（大文字小文字を区別しない）はDUPLICATE_SUBSCRIBERを返す。
func (s *Service) Subscribe(ctx context.Context, email, name string) (*model.Subscriber, error) {
	sub := model.NewSubscriber(email, s.sanitizer.Text(name), s.now())

	existing, err := s.subscribers.FindByEmail(ctx, sub.Email)
	if err != nil {
		return nil, fmt.Errorf("購読者の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSubscriberError()
	}

	created, err := s.subscribers.Create(ctx, sub)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSubscriber) {
			return nil, model.NewDuplicateSubscriberError()
		}
		return nil, fmt.Errorf("購読者の保存に失敗しました: %w", err)
	}

	slog.Info("newsletter subscriber added", slog.Int64("subscriber_id", created.ID))
	return created, nil
}
