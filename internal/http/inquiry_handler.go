package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_kitchen/internal/auth"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/fjod/go_kitchen/internal/inquiry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type InquiryHandler struct {
	service     *inquiry.Service
	timeout     time.Duration
	maxBodySize int64
}

func NewInquiryHandler(service *inquiry.Service, timeout time.Duration, maxBodySize int64) *InquiryHandler {
	return &InquiryHandler{
		service:     service,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type InquiriesResponse struct {
	Inquiries []domain.Inquiry `json:"inquiries"`
}

func (h *InquiryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req inquiry.SubmitRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var userID string
	if p, ok := auth.FromContext(r.Context()); ok {
		userID = p.UserID
	}

	var limiter inquiry.Limiter
	if s := sessionFromContext(r.Context()); s != nil {
		limiter = s
	}

	inq, err := h.service.Submit(ctx, limiter, userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, inq)
}

func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	inquiries, err := h.service.List(ctx, r.URL.Query().Get("status"))
	if err != nil {
		handleError(w, err)
		return
	}
	if inquiries == nil {
		inquiries = []domain.Inquiry{}
	}

	respondJSON(w, http.StatusOK, InquiriesResponse{Inquiries: inquiries})
}

func (h *InquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return
	}

	var req UpdateStatusRequestDTO
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	inq, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inq)
}
