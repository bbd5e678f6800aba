package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
)

// ResourceServiceInterface はリソースハンドラーが必要とするサービスインターフェース。
type ResourceServiceInterface interface {
	List(ctx context.Context, filter model.ResourceFilter) ([]*model.Resource, error)
	Get(ctx context.Context, id int64) (*model.Resource, error)
	Create(ctx context.Context, in model.NewResourceParams) (*model.Resource, error)
}

// ResourceHandler は学習リソースのHTTPハンドラー。
type ResourceHandler struct {
	service ResourceServiceInterface
	decoder BodyDecoder
}

// NewResourceHandler はResourceHandlerを生成する。
func NewResourceHandler(service ResourceServiceInterface, decoder BodyDecoder) *ResourceHandler {
	return &ResourceHandler{service: service, decoder: decoder}
}

type createResourceRequest struct {
	Title       string     `json:"title" jsonschema:"required,minLength=1,maxLength=300"`
	Description string     `json:"description,omitempty" jsonschema:"maxLength=5000"`
	URL         string     `json:"url" jsonschema:"required,format=uri,pattern=^https?://,maxLength=2000"`
	Category    string     `json:"category,omitempty" jsonschema:"maxLength=100"`
	Type        string     `json:"type,omitempty" jsonschema:"enum=guide,enum=article,enum=template,enum=news"`
	Source      string     `json:"source,omitempty" jsonschema:"maxLength=200"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

type resourceResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Category    string     `json:"category"`
	Type        string     `json:"type"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toResourceResponse(res *model.Resource) resourceResponse {
	return resourceResponse{
		ID:          res.ID,
		Title:       res.Title,
		Description: res.Description,
		URL:         res.URL,
		Category:    res.Category,
		Type:        string(res.Type),
		Source:      res.Source,
		PublishedAt: res.PublishedAt,
		CreatedAt:   res.CreatedAt,
	}
}

// List はリソース一覧を新しい順で返す。
// GET /api/resources?category=&type=
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resources, err := h.service.List(r.Context(), model.ResourceFilter{
		Category: q.Get("category"),
		Type:     model.ResourceType(q.Get("type")),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]resourceResponse, len(resources))
	for i, res := range resources {
		resp[i] = toResourceResponse(res)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はリソースを返す。
// GET /api/resources/{id}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(res))
}

// Create はリソースを登録する。ログインユーザーのみ。
// POST /api/resources
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.service.Create(r.Context(), model.NewResourceParams{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Category:    req.Category,
		Type:        model.ResourceType(req.Type),
		Source:      req.Source,
		PublishedAt: req.PublishedAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceResponse(res))
}
