package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ImageResolver turns a stored image reference into a URL the browser can load.
type ImageResolver interface {
	URL(ctx context.Context, ref string) (string, error)
}

type MenuHandler struct {
	catalog catalog.Catalog
	engine  *availability.Engine
	images  ImageResolver
	timeout time.Duration
	log     *slog.Logger
}

func NewMenuHandler(c catalog.Catalog, engine *availability.Engine, images ImageResolver, timeout time.Duration, log *slog.Logger) *MenuHandler {
	return &MenuHandler{
		catalog: c,
		engine:  engine,
		images:  images,
		timeout: timeout,
		log:     log,
	}
}

type DishResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Price        decimal.Decimal     `json:"price"`
	ImageURL     string              `json:"image_url"`
	Gallery      []string            `json:"gallery,omitempty"`
	Nutrition    *domain.Nutrition   `json:"nutrition,omitempty"`
	Availability domain.Availability `json:"availability"`
	Verdict      domain.Verdict      `json:"verdict"`
	Badge        availability.Badge  `json:"badge"`
}

type MenuResponse struct {
	AsOf   string         `json:"as_of"`
	Dishes []DishResponse `json:"dishes"`
}

// menuVersion is what the ETag is computed over. Image URLs are left out
// because presigned URLs differ on every request.
type menuVersion struct {
	AsOf     string           `json:"as_of"`
	Dishes   []domain.Dish    `json:"dishes"`
	Verdicts []domain.Verdict `json:"verdicts"`
}

func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dishes, err := h.catalog.ListDishes(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	h.serve(ctx, w, r, dishes, func(resp MenuResponse) interface{} { return resp })
}

func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dish, err := h.catalog.GetDish(ctx, chi.URLParam(r, "dish_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	h.serve(ctx, w, r, []domain.Dish{dish}, func(resp MenuResponse) interface{} { return resp.Dishes[0] })
}

func (h *MenuHandler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, dishes []domain.Dish, body func(MenuResponse) interface{}) {
	asOf := h.engine.Now().Format(time.DateOnly)
	verdicts := make([]domain.Verdict, len(dishes))
	for i, d := range dishes {
		verdicts[i] = h.engine.Evaluate(d)
	}

	etag, err := computeETag(menuVersion{AsOf: asOf, Dishes: dishes, Verdicts: verdicts})
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := MenuResponse{AsOf: asOf, Dishes: make([]DishResponse, len(dishes))}
	for i, d := range dishes {
		resp.Dishes[i] = h.toResponse(ctx, d, verdicts[i])
	}
	respondJSON(w, http.StatusOK, body(resp))
}

func (h *MenuHandler) toResponse(ctx context.Context, d domain.Dish, v domain.Verdict) DishResponse {
	resp := DishResponse{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		Category:     d.Category,
		Price:        d.Price,
		ImageURL:     h.imageURL(ctx, d.ImageRef),
		Nutrition:    d.Nutrition,
		Availability: d.Availability,
		Verdict:      v,
		Badge:        availability.BadgeFor(v.Status),
	}
	for _, ref := range d.Gallery {
		if u := h.imageURL(ctx, ref); u != "" {
			resp.Gallery = append(resp.Gallery, u)
		}
	}
	return resp
}

// imageURL degrades to no image when the reference cannot be resolved.
func (h *MenuHandler) imageURL(ctx context.Context, ref string) string {
	if h.images == nil || ref == "" {
		return ref
	}
	u, err := h.images.URL(ctx, ref)
	if err != nil {
		h.log.WarnContext(ctx, "image url failed", "ref", ref, "error", err)
		return ""
	}
	return u
}

func computeETag(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to hash menu: %w", err)
	}
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(b)), nil
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
