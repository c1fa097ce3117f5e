package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/saolinek/kaloricka-kalkulacka/internal/config"
	"github.com/saolinek/kaloricka-kalkulacka/internal/handlers"
	"github.com/saolinek/kaloricka-kalkulacka/internal/middleware"
	"github.com/saolinek/kaloricka-kalkulacka/internal/services"
)

// Version is surfaced by /health so the View can show which build it talks to.
const Version = "1.10.0"

type Server struct {
	router *chi.Mux
	config config.Config
}

func New(cfg config.Config, tracker *services.TrackerService, authService *services.AuthService) *Server {
	trackerHandler := handlers.NewTrackerHandler(tracker)
	icalHandler := handlers.NewICalHandler(tracker)
	authHandler := handlers.NewAuthHandler(authService)

	router := chi.NewRouter()

	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Compress(5))
	router.Use(middleware.WithIdentity(authService))

	if _, err := os.Stat(cfg.StaticDir); err == nil {
		router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"` + Version + `"}`))
	})

	router.Get("/login", authHandler.Login)
	router.Get("/auth/callback", authHandler.Callback)
	router.Get("/logout", authHandler.Logout)

	router.Get("/export/ical", icalHandler.Feed)

	router.Route("/api", func(r chi.Router) {
		r.Get("/session", authHandler.Session)

		r.Get("/state", trackerHandler.State)
		r.Get("/summary", trackerHandler.Summary)
		r.Post("/reconcile", trackerHandler.Reconcile)

		r.Post("/items", trackerHandler.LogItem)
		r.Delete("/items/{id}", trackerHandler.RemoveItem)

		r.Put("/weight", trackerHandler.SetWeight)
		r.Put("/target", trackerHandler.SetTarget)
		r.Put("/view", trackerHandler.SwitchView)

		r.Post("/recipes", trackerHandler.CreateRecipe)
		r.Put("/recipes/{id}", trackerHandler.UpdateRecipe)
		r.Delete("/recipes/{id}", trackerHandler.DeleteRecipe)
		r.Post("/recipes/{id}/consume", trackerHandler.ConsumeRecipe)

		r.Get("/history", trackerHandler.History)
		r.Delete("/history/{date}", trackerHandler.DeleteHistoryDay)
		r.Delete("/history/{date}/weight", trackerHandler.DeleteHistoryWeight)

		r.Post("/reset", trackerHandler.Reset)
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

// Router exposes the handler tree, mainly for tests.
func (server *Server) Router() http.Handler {
	return server.router
}

func (server *Server) Start() error {
	address := ":" + server.config.Port
	slog.Info("starting server", "address", address, "version", Version)
	return http.ListenAndServe(address, server.router)
}
