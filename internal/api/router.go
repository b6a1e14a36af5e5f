package api

import (
	_ "solesync/docs"
	"solesync/internal/market/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(marketHandler *handler.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)

	router.Post("/api/v1/prices/refresh", marketHandler.Refresh)
	router.Get("/api/v1/prices/{sku}", marketHandler.UnifiedPrices)
	router.Post("/api/v1/jobs", marketHandler.EnqueueJob)
	router.Get("/api/v1/jobs/{id}", marketHandler.GetJob)
	router.Delete("/api/v1/jobs/{id}", marketHandler.CancelJob)
	router.Get("/api/v1/fx/{date}/{from:[A-Za-z]{3}}/{to:[A-Za-z]{3}}", marketHandler.FxRate)
	return router
}
