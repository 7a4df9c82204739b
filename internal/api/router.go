package api

import (
	"net/http"

	"github.com/athebyme/listing-pipeline/internal/api/handlers"
	"github.com/athebyme/listing-pipeline/internal/api/middleware"
	"github.com/athebyme/listing-pipeline/internal/domain/services"
	"github.com/athebyme/listing-pipeline/pkg/auth"
	"github.com/athebyme/listing-pipeline/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Роли доступа к API
const (
	RolePublisher = "publisher"
	RoleViewer    = "viewer"
)

// maxBodyBytes ограничение тела запроса со списком товаров
const maxBodyBytes = 32 << 20

// SetupRouter настраивает маршрутизатор.
// Если authPort равен nil, маршруты /api/v1 доступны без токена.
func SetupRouter(
	pipeline services.PipelineServiceInterface,
	logger interfaces.LoggerPort,
	corsAllowedOrigins []string,
	authPort interfaces.AuthPort,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(corsAllowedOrigins))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	r.Handle("/metrics", promhttp.Handler())

	requireAny := func(roles ...string) func(http.Handler) http.Handler {
		if authPort == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return auth.RequireAnyRole(authPort, roles...)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if authPort != nil {
			r.Use(auth.AuthMiddleware(authPort, logger))
		}
		r.Use(middleware.MaxBodySize(maxBodyBytes))

		listingHandler := handlers.NewListingHandler(pipeline, logger)
		batchHandler := handlers.NewBatchHandler(pipeline, logger)

		r.Route("/listings", func(r chi.Router) {
			r.Use(requireAny(RoleViewer, RolePublisher))
			r.Post("/assemble", listingHandler.Assemble)
			r.Post("/export", listingHandler.Export)
		})

		r.Route("/batches", func(r chi.Router) {
			r.With(requireAny(RoleViewer, RolePublisher)).Get("/", batchHandler.ListBatches)
			r.With(requireAny(RolePublisher)).Post("/", batchHandler.StartBatch)
			r.With(requireAny(RolePublisher)).Post("/sync", batchHandler.PublishSync)

			r.Route("/{id}", func(r chi.Router) {
				r.With(requireAny(RoleViewer, RolePublisher)).Get("/", batchHandler.GetBatch)
				r.With(requireAny(RolePublisher)).Delete("/", batchHandler.CancelBatch)
			})
		})
	})

	return r
}
