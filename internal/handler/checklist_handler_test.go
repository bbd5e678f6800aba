package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/musicomply/internal/checklist"
	"github.com/hitoshi/musicomply/internal/middleware"
	"github.com/hitoshi/musicomply/internal/model"
	"github.com/hitoshi/musicomply/internal/validation"
)

type mockChecklistService struct {
	listItemsFn   func(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error)
	listForUserFn func(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error)
	createFn      func(ctx context.Context, requesterID int64, in checklist.CreateInput) (*model.UserChecklist, error)
	updateFn      func(ctx context.Context, requesterID, checklistID int64, in checklist.UpdateInput) (*model.UserChecklist, error)
}

func (m *mockChecklistService) ListItems(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error) {
	return m.listItemsFn(ctx, itemType)
}

func (m *mockChecklistService) ListForUser(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error) {
	return m.listForUserFn(ctx, requesterID, userID)
}

func (m *mockChecklistService) Create(ctx context.Context, requesterID int64, in checklist.CreateInput) (*model.UserChecklist, error) {
	return m.createFn(ctx, requesterID, in)
}

func (m *mockChecklistService) Update(ctx context.Context, requesterID, checklistID int64, in checklist.UpdateInput) (*model.UserChecklist, error) {
	return m.updateFn(ctx, requesterID, checklistID, in)
}

// serveChecklist はchiのルートパラメータを解決したうえで認証済みユーザーとしてリクエストを処理する。
func serveChecklist(svc ChecklistServiceInterface, method, path, body string) *httptest.ResponseRecorder {
	h := NewChecklistHandler(svc, validation.New())
	r := chi.NewRouter()
	r.Get("/api/user-checklists/{userId}", h.ListForUser)
	r.Post("/api/user-checklists", h.Create)
	r.Patch("/api/user-checklists/{id}", h.Update)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(middleware.ContextWithUser(req.Context(), testUser()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChecklistHandler_ListForUser(t *testing.T) {
	t.Run("不正なuserIdは400", func(t *testing.T) {
		svc := &mockChecklistService{
			listForUserFn: func(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error) {
				t.Error("service should not be called")
				return nil, nil
			},
		}
		w := serveChecklist(svc, http.MethodGet, "/api/user-checklists/abc", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if body := decodeBody(t, w); body["code"] != model.ErrCodeInvalidRequest {
			t.Errorf("code = %v", body["code"])
		}
	})

	t.Run("他人のチェックリストは403", func(t *testing.T) {
		svc := &mockChecklistService{
			listForUserFn: func(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error) {
				if requesterID != 7 || userID != 8 {
					t.Errorf("requesterID=%d userID=%d", requesterID, userID)
				}
				return nil, model.NewForbiddenError()
			},
		}
		w := serveChecklist(svc, http.MethodGet, "/api/user-checklists/8", "")
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("completedItemsは空配列で返す", func(t *testing.T) {
		svc := &mockChecklistService{
			listForUserFn: func(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error) {
				return []*model.UserChecklist{{ID: 1, UserID: 7, Type: model.UserTypeArtist, TotalItems: 10, Status: model.ChecklistStatusNotStarted}}, nil
			},
		}
		w := serveChecklist(svc, http.MethodGet, "/api/user-checklists/7", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"completedItems":[]`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})
}

func TestChecklistHandler_Create(t *testing.T) {
	t.Run("userId未指定は400", func(t *testing.T) {
		svc := &mockChecklistService{}
		w := serveChecklist(svc, http.MethodPost, "/api/user-checklists", `{"type":"artist"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if body := decodeBody(t, w); body["code"] != model.ErrCodeValidationFailed {
			t.Errorf("code = %v", body["code"])
		}
	})

	t.Run("入力をサービスに渡す", func(t *testing.T) {
		var got checklist.CreateInput
		svc := &mockChecklistService{
			createFn: func(ctx context.Context, requesterID int64, in checklist.CreateInput) (*model.UserChecklist, error) {
				got = in
				return &model.UserChecklist{ID: 3, UserID: in.UserID, Type: model.UserTypeLabel, TotalItems: 10, Status: model.ChecklistStatusNotStarted, Notes: in.Notes}, nil
			},
		}
		w := serveChecklist(svc, http.MethodPost, "/api/user-checklists", `{"userId":7,"type":"label","notes":"first"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
		}
		if got.UserID != 7 || got.Type != model.UserTypeLabel || got.Notes != "first" {
			t.Errorf("unexpected input: %+v", got)
		}
	})
}

func TestChecklistHandler_Update(t *testing.T) {
	t.Run("存在しないチェックリストは404", func(t *testing.T) {
		svc := &mockChecklistService{
			updateFn: func(ctx context.Context, requesterID, checklistID int64, in checklist.UpdateInput) (*model.UserChecklist, error) {
				return nil, model.NewChecklistNotFoundError(checklistID)
			},
		}
		w := serveChecklist(svc, http.MethodPatch, "/api/user-checklists/99", `{"notes":"x"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if body := decodeBody(t, w); body["code"] != model.ErrCodeChecklistNotFound {
			t.Errorf("code = %v", body["code"])
		}
	})

	t.Run("statusとcompletedItemsを渡す", func(t *testing.T) {
		var got checklist.UpdateInput
		svc := &mockChecklistService{
			updateFn: func(ctx context.Context, requesterID, checklistID int64, in checklist.UpdateInput) (*model.UserChecklist, error) {
				got = in
				return &model.UserChecklist{ID: checklistID, UserID: 7, Type: model.UserTypeArtist, CompletedItems: *in.CompletedItems, TotalItems: 10, Status: *in.Status}, nil
			},
		}
		w := serveChecklist(svc, http.MethodPatch, "/api/user-checklists/5", `{"completedItems":[1,2],"status":"in_progress"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		if got.CompletedItems == nil || len(*got.CompletedItems) != 2 || got.Status == nil || *got.Status != model.ChecklistStatusInProgress {
			t.Errorf("unexpected input: %+v", got)
		}
		if got.Notes != nil {
			t.Error("notes should be nil when omitted")
		}
	})

	t.Run("内部エラーは詳細を返さない", func(t *testing.T) {
		svc := &mockChecklistService{
			updateFn: func(ctx context.Context, requesterID, checklistID int64, in checklist.UpdateInput) (*model.UserChecklist, error) {
				return nil, errors.New("pq: connection refused")
			},
		}
		w := serveChecklist(svc, http.MethodPatch, "/api/user-checklists/5", `{"notes":"x"}`)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", w.Code)
		}
		if strings.Contains(w.Body.String(), "pq:") {
			t.Errorf("internal error leaked: %s", w.Body.String())
		}
	})
}

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewValidationError(map[string]string{"email": "invalid"}), http.StatusBadRequest},
		{model.NewDuplicateUsernameError(), http.StatusBadRequest},
		{model.NewDuplicateResourceError(), http.StatusBadRequest},
		{model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{model.NewNotAuthenticatedError(), http.StatusUnauthorized},
		{model.NewForbiddenError(), http.StatusForbidden},
		{model.NewResourceNotFoundError(1), http.StatusNotFound},
		{model.NewDuplicateSubscriberError(), http.StatusConflict},
		{model.NewRateLimitedError(), http.StatusTooManyRequests},
		{model.NewLogoutFailedError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}
