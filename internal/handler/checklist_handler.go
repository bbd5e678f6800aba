package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/musicomply/internal/checklist"
	"github.com/hitoshi/musicomply/internal/model"
)

// ChecklistServiceInterface はチェックリストハンドラーが必要とするサービスインターフェース。
type ChecklistServiceInterface interface {
	ListItems(ctx context.Context, itemType model.UserType) ([]*model.ComplianceChecklistItem, error)
	ListForUser(ctx context.Context, requesterID, userID int64) ([]*model.UserChecklist, error)
	Create(ctx context.Context, requesterID int64, in checklist.CreateInput) (*model.UserChecklist, error)
	Update(ctx context.Context, requesterID, checklistID int64, in checklist.UpdateInput) (*model.UserChecklist, error)
}

// ChecklistHandler はコンプライアンスチェックリストのHTTPハンドラー。
type ChecklistHandler struct {
	service ChecklistServiceInterface
	decoder BodyDecoder
}

// NewChecklistHandler はChecklistHandlerを生成する。
func NewChecklistHandler(service ChecklistServiceInterface, decoder BodyDecoder) *ChecklistHandler {
	return &ChecklistHandler{service: service, decoder: decoder}
}

type createChecklistRequest struct {
	UserID int64   `json:"userId" jsonschema:"required,minimum=1"`
	Type   string  `json:"type,omitempty" jsonschema:"enum=artist,enum=label"`
	Notes  *string `json:"notes,omitempty" jsonschema:"maxLength=2000"`
}

type updateChecklistRequest struct {
	CompletedItems *[]int64 `json:"completedItems,omitempty" jsonschema:"maxItems=500,minimum=1"`
	Notes          *string  `json:"notes,omitempty" jsonschema:"maxLength=2000"`
	Status         *string  `json:"status,omitempty" jsonschema:"enum=not_started,enum=in_progress,enum=completed"`
}

type checklistItemResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SortOrder   int    `json:"sortOrder"`
	Required    bool   `json:"required"`
}

type userChecklistResponse struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Type           string    `json:"type"`
	CompletedItems []int64   `json:"completedItems"`
	TotalItems     int       `json:"totalItems"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toUserChecklistResponse(c *model.UserChecklist) userChecklistResponse {
	completed := c.CompletedItems
	if completed == nil {
		completed = []int64{}
	}
	return userChecklistResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		Type:           string(c.Type),
		CompletedItems: completed,
		TotalItems:     c.TotalItems,
		Status:         string(c.Status),
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// ListItems はチェック項目一覧を返す。
// GET /api/compliance-checklist?type=artist|label
func (h *ChecklistHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context(), model.UserType(r.URL.Query().Get("type")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]checklistItemResponse, len(items))
	for i, it := range items {
		resp[i] = checklistItemResponse{
			ID:          it.ID,
			Type:        string(it.Type),
			Category:    it.Category,
			Title:       it.Title,
			Description: it.Description,
			SortOrder:   it.SortOrder,
			Required:    it.Required,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListForUser はユーザーのチェックリスト一覧を返す。本人以外は403。
// GET /api/user-checklists/{userId}
func (h *ChecklistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	userID, err := parseIDParam(r, "userId")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	lists, err := h.service.ListForUser(r.Context(), user.ID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]userChecklistResponse, len(lists))
	for i, c := range lists {
		resp[i] = toUserChecklistResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はチェックリストを作成する。
// POST /api/user-checklists
func (h *ChecklistHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req createChecklistRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	in := checklist.CreateInput{
		UserID: req.UserID,
		Type:   model.UserType(req.Type),
	}
	if req.Notes != nil {
		in.Notes = *req.Notes
	}

	created, err := h.service.Create(r.Context(), user.ID, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserChecklistResponse(created))
}

// Update はチェックリストを部分更新する。
// PATCH /api/user-checklists/{id}
func (h *ChecklistHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req updateChecklistRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	in := checklist.UpdateInput{
		CompletedItems: req.CompletedItems,
		Notes:          req.Notes,
	}
	if req.Status != nil {
		status := model.ChecklistStatus(*req.Status)
		in.Status = &status
	}

	updated, err := h.service.Update(r.Context(), user.ID, id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserChecklistResponse(updated))
}
