package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/repository"
	"github.com/hitoshi/musicomply/internal/security"
)

// mockDirectoryRepo はDirectoryRepositoryのモック。
type mockDirectoryRepo struct {
	listFn     func(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error)
	findByIDFn func(ctx context.Context, id int64) (*model.DirectoryEntry, error)
	createFn   func(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error)
}

func (m *mockDirectoryRepo) List(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error) {
	return m.listFn(ctx, filter)
}

func (m *mockDirectoryRepo) FindByID(ctx context.Context, id int64) (*model.DirectoryEntry, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockDirectoryRepo) Create(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
	return m.createFn(ctx, entry)
}

func newSeededService(t *testing.T) *Service {
	t.Helper()
	store, err := repository.NewMemoryStore(0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return NewService(store.Directory, security.NewTextSanitizer())
}

func TestList_Filters(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter model.DirectoryFilter
		want   int
	}{
		{"全件", model.DirectoryFilter{}, 8},
		{"業種", model.DirectoryFilter{Type: model.DirectoryTypePRO}, 5},
		{"国（大文字小文字を区別しない）", model.DirectoryFilter{Country: "us"}, 5},
		{"検索", model.DirectoryFilter{Search: "streaming"}, 1},
		{"一致なし", model.DirectoryFilter{Type: model.DirectoryTypeLegal}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, len(got))
			}
		})
	}
}

func TestGet(t *testing.T) {
	svc := newSeededService(t)
	ctx := context.Background()

	entry, err := svc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != 1 {
		t.Errorf("expected ID 1, got %d", entry.ID)
	}

	_, err = svc.Get(ctx, 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDirectoryNotFound {
		t.Errorf("expected DIRECTORY_ENTRY_NOT_FOUND, got %v", err)
	}
}

func TestCreate_SanitizesAndStoresUnverified(t *testing.T) {
	var stored model.DirectoryEntry
	repo := &mockDirectoryRepo{
		createFn: func(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
			stored = entry
			entry.ID = 42
			return &entry, nil
		},
	}
	svc := NewService(repo, security.NewTextSanitizer())

	got, err := svc.Create(context.Background(), model.NewDirectoryEntryParams{
		Name:        "  <b>Indie Law</b> LLP ",
		Type:        model.DirectoryTypeLegal,
		Description: `Music lawyers<script>alert(1)</script>`,
		Email:       "Info@IndieLaw.example",
		Country:     "US",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("expected ID 42, got %d", got.ID)
	}
	if stored.Name != "Indie Law LLP" {
		t.Errorf("unexpected name %q", stored.Name)
	}
	if stored.Description != "Music lawyers" {
		t.Errorf("unexpected description %q", stored.Description)
	}
	if stored.Email != "info@indielaw.example" {
		t.Errorf("expected normalized email, got %q", stored.Email)
	}
	if stored.Verified {
		t.Error("expected submitted entry to be unverified")
	}
}

func TestCreate_EmptyNameAfterSanitize(t *testing.T) {
	repo := &mockDirectoryRepo{
		createFn: func(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
			t.Fatal("Create should not be called")
			return nil, nil
		},
	}
	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Create(context.Background(), model.NewDirectoryEntryParams{
		Name: "<script>x</script>",
		Type: model.DirectoryTypeLabel,
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if _, ok := apiErr.Fields["name"]; !ok {
		t.Errorf("expected name field error, got %v", apiErr.Fields)
	}
}

func TestCreate_StoreError(t *testing.T) {
	repo := &mockDirectoryRepo{
		createFn: func(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(repo, security.NewTextSanitizer())

	_, err := svc.Create(context.Background(), model.NewDirectoryEntryParams{Name: "X", Type: model.DirectoryTypeLabel})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("expected plain error, got APIError %v", apiErr)
	}
}

func TestCreate_WebsiteMustBeHTTP(t *testing.T) {
	tests := []struct {
		name    string
		website string
		wantErr bool
	}{
		{"https", "https://indielaw.example", false},
		{"http", "http://indielaw.example/contact", false},
		{"未指定", "", false},
		{"javascriptスキーム", "javascript:alert(document.cookie)", true},
		{"大文字のjavascript", "JavaScript:alert(1)", true},
		{"dataスキーム", "data:text/html,<script>alert(1)</script>", true},
		{"ホストなし", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockDirectoryRepo{
				createFn: func(ctx context.Context, entry model.DirectoryEntry) (*model.DirectoryEntry, error) {
					called = true
					entry.ID = 1
					return &entry, nil
				},
			}
			svc := NewService(repo, security.NewTextSanitizer())

			_, err := svc.Create(context.Background(), model.NewDirectoryEntryParams{
				Name:    "Indie Law",
				Type:    model.DirectoryTypeLegal,
				Website: tt.website,
			})
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Fatalf("expected VALIDATION_FAILED, got %v", err)
			}
			if _, ok := apiErr.Fields["website"]; !ok {
				t.Errorf("expected website field error, got %v", apiErr.Fields)
			}
			if called {
				t.Error("entry must not be stored")
			}
		})
	}
}
