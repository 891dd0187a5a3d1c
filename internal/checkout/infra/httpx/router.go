package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/readcity/checkout/internal/checkout/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/checkout/sessions", handler.StartSession)
	r.Get("/checkout/sessions/{id}", handler.GetState)
	r.Put("/checkout/sessions/{id}/fields", handler.SetField)
	r.Post("/checkout/sessions/{id}/next", handler.NextStep)
	r.Post("/checkout/sessions/{id}/previous", handler.PreviousStep)
	r.Post("/checkout/sessions/{id}/goto", handler.GotoStep)
	r.Post("/checkout/sessions/{id}/shipping-method", handler.SelectShippingMethod)
	r.Post("/checkout/sessions/{id}/submit", handler.Submit)
	r.Post("/checkout/sessions/{id}/cancel", handler.Cancel)
	r.Post("/checkout/sessions/{id}/resume", handler.Resume)
	return r
}
