package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/eigenface/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	modelsHandler := handlers.NewModelsHandler(s.gallery)
	classifyHandler := handlers.NewClassifyHandler(s.gallery, s.detector)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/models", modelsHandler.List)
		r.Post("/classify", classifyHandler.Classify)
	})
}
