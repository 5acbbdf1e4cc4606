package app

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/mealbox/orders-api/internal/handlers"
	"github.com/mealbox/orders-api/internal/httpx"
	"github.com/mealbox/orders-api/internal/middleware"
)

//go:embed openapi.yaml
var openapiSpec []byte

// LoadSpec parses and validates the embedded API document.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
}

func NewRouter(h *handlers.Server, verifier middleware.Verifier, logger *slog.Logger) (http.Handler, error) {
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	cfg := h.Config

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.LimitBodyBytes(cfg.APIMaxBodyBytes))

	webhookLimiter := middleware.NewIPRateLimiter(cfg.WebhookRateLimit, time.Minute)
	r.With(webhookLimiter.Middleware("Too many webhook deliveries")).Post("/webhook/orders", h.PostWebhookOrders)

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		Options: openapi3filter.Options{
			// X-Api-Key is checked by RequireAPIKey below.
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: httpx.CodeValidation, Message: message},
				RequestID: w.Header().Get(middleware.RequestIDHeader),
			})
		},
	}))

	api.Get("/health", h.GetHealth)
	api.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAPIKey(verifier))
		protected.Post("/imports", h.PostImports)
		protected.Post("/imports/cleanup", h.PostImportsCleanup)
		protected.Post("/delivery-dates/fill", h.PostDeliveryDatesFill)
		protected.Get("/cooking-plan", h.GetCookingPlan)
		protected.Get("/orders/{orderId}/invoice", h.GetOrderInvoice)
		protected.Get("/reports/summary", h.GetReportsSummary)
	})

	r.Mount("/api", api)
	return r, nil
}
