package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/musicomply/internal/model"
)

// DirectoryServiceInterface はディレクトリハンドラーが必要とするサービスインターフェース。
type DirectoryServiceInterface interface {
	List(ctx context.Context, filter model.DirectoryFilter) ([]*model.DirectoryEntry, error)
	Get(ctx context.Context, id int64) (*model.DirectoryEntry, error)
	Create(ctx context.Context, in model.NewDirectoryEntryParams) (*model.DirectoryEntry, error)
}

// DirectoryHandler は企業ディレクトリのHTTPハンドラー。
type DirectoryHandler struct {
	service DirectoryServiceInterface
	decoder BodyDecoder
}

// NewDirectoryHandler はDirectoryHandlerを生成する。
func NewDirectoryHandler(service DirectoryServiceInterface, decoder BodyDecoder) *DirectoryHandler {
	return &DirectoryHandler{service: service, decoder: decoder}
}

type createDirectoryEntryRequest struct {
	Name        string `json:"name" jsonschema:"required,minLength=1,maxLength=200"`
	Type        string `json:"type" jsonschema:"required,enum=pro,enum=publisher,enum=label,enum=distributor,enum=legal,enum=collecting_society"`
	Description string `json:"description,omitempty" jsonschema:"maxLength=2000"`
	Website     string `json:"website,omitempty" jsonschema:"format=uri,pattern=^https?://,maxLength=500"`
	Email       string `json:"email,omitempty" jsonschema:"format=email,maxLength=254"`
	Country     string `json:"country,omitempty" jsonschema:"maxLength=100"`
}

type directoryEntryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Website     string    `json:"website"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toDirectoryEntryResponse(e *model.DirectoryEntry) directoryEntryResponse {
	return directoryEntryResponse{
		ID:          e.ID,
		Name:        e.Name,
		Type:        string(e.Type),
		Description: e.Description,
		Website:     e.Website,
		Email:       e.Email,
		Country:     e.Country,
		Verified:    e.Verified,
		CreatedAt:   e.CreatedAt,
	}
}

// List はディレクトリ一覧を返す。
// GET /api/directory?type=&country=&search=
func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.service.List(r.Context(), model.DirectoryFilter{
		Type:    model.DirectoryEntryType(q.Get("type")),
		Country: q.Get("country"),
		Search:  q.Get("search"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]directoryEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toDirectoryEntryResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はディレクトリエントリを返す。
// GET /api/directory/{id}
func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDirectoryEntryResponse(entry))
}

// Create は掲載申請を受け付ける。
// POST /api/directory
func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDirectoryEntryRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	entry, err := h.service.Create(r.Context(), model.NewDirectoryEntryParams{
		Name:        req.Name,
		Type:        model.DirectoryEntryType(req.Type),
		Description: req.Description,
		Website:     req.Website,
		Email:       req.Email,
		Country:     req.Country,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDirectoryEntryResponse(entry))
}
