package handlers

import (
	"net/http"
	"time"

	"wardrobe-backend/internal/metrics"
	"wardrobe-backend/internal/middleware"
	"wardrobe-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig holds what the HTTP surface needs
type RouterConfig struct {
	Wardrobe       *services.WardrobeService
	StoreMode      string
	ImagesDir      string        // served under /images when set
	Debug          bool          // mounts /debug and /admin
	RequestTimeout time.Duration // applies to every route but addItem
}

// HealthResponse represents the health check body
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// NewRouter builds the chi router with all routes and middleware
func NewRouter(cfg RouterConfig) http.Handler {
	userHandler := NewUserHandler(cfg.Wardrobe)
	itemHandler := NewItemHandler(cfg.Wardrobe)
	outfitHandler := NewOutfitHandler(cfg.Wardrobe)
	syncHandler := NewSyncHandler(cfg.Wardrobe)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)
	r.Use(metrics.InstrumentHandler)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout, "/addItem"))
	}

	// Routes
	r.Route("/users", func(r chi.Router) {
		r.Post("/findOrCreate", userHandler.FindOrCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/addItem", itemHandler.AddItem)
			r.Get("/items", itemHandler.ListItems)
			r.Post("/deleteItem", itemHandler.DeleteItem)
			r.Post("/saveOutfit", outfitHandler.SaveOutfit)
			r.Post("/crushOutfit", outfitHandler.CrushOutfit)
			r.Get("/crushes", outfitHandler.ListCrushes)
			r.Post("/sync", syncHandler.Sync)
		})
	})

	if cfg.Debug {
		debugHandler := NewDebugHandler(cfg.Wardrobe)
		r.Get("/debug/users", debugHandler.ListUsers)
		r.Get("/debug/users/{id}", debugHandler.GetUser)
		r.Post("/admin/add-data", debugHandler.AddData)
	}

	if cfg.ImagesDir != "" {
		r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.ImagesDir))))
	}

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: cfg.StoreMode})
	})

	return r
}
