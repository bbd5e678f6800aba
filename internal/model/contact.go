package model

import (
	"strings"
	"time"
)

// Subscriber はニュースレター購読者を表す。Emailは一意。
type Subscriber struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
}

// NewSubscriber は未保存のSubscriberを生成する。
func NewSubscriber(email, name string, now time.Time) Subscriber {
	return Subscriber{
		Email:     NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
	}
}

// ContactMessage はお問い合わせフォームからのメッセージを表す。
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

// NewContactMessage は未保存のContactMessageを生成する。
func NewContactMessage(name, email, subject, message string, now time.Time) ContactMessage {
	return ContactMessage{
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Subject:   strings.TrimSpace(subject),
		Message:   strings.TrimSpace(message),
		CreatedAt: now,
	}
}
