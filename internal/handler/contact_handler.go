package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/musicomply/internal/contact"
	"github.com/hitoshi/musicomply/internal/model"
)

// ContactServiceInterface はお問い合わせ・購読ハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	SubmitMessage(ctx context.Context, in contact.MessageInput) (*model.ContactMessage, error)
	Subscribe(ctx context.Context, email, name string) (*model.Subscriber, error)
}

// ContactHandler はお問い合わせとニュースレター購読のHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
	decoder BodyDecoder
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface, decoder BodyDecoder) *ContactHandler {
	return &ContactHandler{service: service, decoder: decoder}
}

type contactRequest struct {
	Name    string `json:"name" jsonschema:"required,minLength=1,maxLength=100"`
	Email   string `json:"email" jsonschema:"required,format=email,maxLength=254"`
	Subject string `json:"subject" jsonschema:"required,minLength=1,maxLength=200"`
	Message string `json:"message" jsonschema:"required,minLength=1,maxLength=5000"`
}

type subscribeRequest struct {
	Email string `json:"email" jsonschema:"required,format=email,maxLength=254"`
	Name  string `json:"name,omitempty" jsonschema:"maxLength=100"`
}

// SubmitMessage はお問い合わせを受け付ける。
// POST /api/contact
func (h *ContactHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := h.service.SubmitMessage(r.Context(), contact.MessageInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Success: true,
		Message: "Message sent successfully",
	})
}

// Subscribe はニュースレター購読を登録する。登録済みのメールアドレスは409。
// POST /api/subscribe
func (h *ContactHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := h.decoder.Decode(r.Body, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := h.service.Subscribe(r.Context(), req.Email, req.Name); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Success: true,
		Message: "Successfully subscribed to newsletter",
	})
}
