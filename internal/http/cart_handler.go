package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_kitchen/internal/cart"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/session"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	catalog     catalog.Catalog
	timeout     time.Duration
	maxBodySize int64
}

func NewCartHandler(c catalog.Catalog, timeout time.Duration, maxBodySize int64) *CartHandler {
	return &CartHandler{
		catalog:     c,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type AddItemRequestDTO struct {
	DishID string `json:"dish_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	session.View
	Notices []session.Notice `json:"notices"`
	Added   *cart.Line       `json:"added,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(s, nil))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFromContext(r.Context())

	var req AddItemRequestDTO
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.DishID == "" {
		handleError(w, session.ErrInvalidItem)
		return
	}

	dish, err := h.catalog.GetDish(ctx, req.DishID)
	if err != nil {
		handleError(w, err)
		return
	}

	line, err := s.AddDish(ctx, dish)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(s, &line))
}

// UpdateQuantity sets a line's quantity; zero removes the line. Unknown
// lines are left alone.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFromContext(r.Context())

	localID, ok := parseLocalID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	if _, err := s.SetQuantity(ctx, localID, req.Quantity); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s, nil))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFromContext(r.Context())

	localID, ok := parseLocalID(w, r)
	if !ok {
		return
	}

	if _, err := s.RemoveLine(ctx, localID); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s, nil))
}

// ClearCart empties the cart. ?silent=true suppresses the confirmation notice.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	s := sessionFromContext(r.Context())

	silent, _ := strconv.ParseBool(r.URL.Query().Get("silent"))
	if err := s.Clear(ctx, silent); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s, nil))
}

func cartResponse(s *session.Session, added *cart.Line) CartResponse {
	resp := CartResponse{
		View:    s.Snapshot(),
		Notices: s.DrainNotices(),
		Added:   added,
	}
	if resp.Lines == nil {
		resp.Lines = []cart.Line{}
	}
	if resp.Notices == nil {
		resp.Notices = []session.Notice{}
	}
	return resp
}

func parseLocalID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	localID, err := strconv.ParseInt(chi.URLParam(r, "local_id"), 10, 64)
	if err != nil || localID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_local_id", "local_id must be a positive integer")
		return 0, false
	}
	return localID, true
}
