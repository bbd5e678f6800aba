package contact

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
	"github.com/hitoshi/musicomply/internal/security"
)

func newTestService() (*Service, *repository.MemoryContactMessageRepo) {
	messages := repository.NewMemoryContactMessageRepo()
	svc := NewService(messages, repository.NewMemorySubscriberRepo(), security.NewTextSanitizer())
	return svc, messages
}

func TestSubmitMessage(t *testing.T) {
	svc, messages := newTestService()
	ctx := context.Background()

	msg, err := svc.SubmitMessage(ctx, MessageInput{
		Name:    "Alice",
		Email:   " Alice@Example.com ",
		Subject: "<i>Licensing</i> question",
		Message: "<p>How do I clear a sample?</p><script>steal()</script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID == 0 {
		t.Error("expected assigned ID")
	}
	if msg.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", msg.Email)
	}
	if msg.Subject != "Licensing question" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Message != "How do I clear a sample?" {
		t.Errorf("unexpected message %q", msg.Message)
	}

	all, _ := messages.List(ctx)
	if len(all) != 1 {
		t.Errorf("expected 1 stored message, got %d", len(all))
	}
}

func TestSubmitMessage_EmptyAfterSanitize(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.SubmitMessage(context.Background(), MessageInput{
		Name: "A", Email: "a@example.com", Subject: "s", Message: "<script>only()</script>",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "Fan@Example.com", "Fan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Email != "fan@example.com" {
		t.Errorf("expected normalized email, got %q", sub.Email)
	}

	_, err = svc.Subscribe(ctx, "fan@example.COM", "Again")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateSubscriber {
		t.Errorf("expected DUPLICATE_SUBSCRIBER, got %v", err)
	}
}

func TestSubscribe_ConcurrentDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Subscribe(ctx, "race@example.com", "")
			var apiErr *model.APIError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDuplicateSubscriber:
				dup.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || dup.Load() != 29 {
		t.Errorf("expected 1 success and 29 duplicates, got %d/%d", ok.Load(), dup.Load())
	}
}
