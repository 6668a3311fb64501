package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_kitchen/internal/auth"
	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/inquiry"
	"github.com/fjod/go_kitchen/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Sessions    *session.Manager
	Catalog     catalog.Catalog
	Engine      *availability.Engine
	Images      ImageResolver
	Inquiries   *inquiry.Service
	Verifier    *auth.Verifier
	Timeout     time.Duration
	MaxBodySize int64
	Log         *slog.Logger
}

func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	menu := NewMenuHandler(cfg.Catalog, cfg.Engine, cfg.Images, cfg.Timeout, cfg.Log)
	carts := NewCartHandler(cfg.Catalog, cfg.Timeout, cfg.MaxBodySize)
	inquiries := NewInquiryHandler(cfg.Inquiries, cfg.Timeout, cfg.MaxBodySize)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Verifier))

		r.Get("/menu", menu.List)
		r.Get("/menu/{dish_id}", menu.Get)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(cfg.Sessions))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)
				r.Post("/items", carts.AddItem)
				r.Put("/items/{local_id}", carts.UpdateQuantity)
				r.Delete("/items/{local_id}", carts.RemoveItem)
			})

			r.Post("/inquiries", inquiries.Submit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Get("/inquiries", inquiries.List)
			r.Patch("/inquiries/{id}", inquiries.UpdateStatus)
		})
	})

	return r
}
