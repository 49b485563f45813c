/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in logs
  2. Logger:     One zap line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the upload form

ROUTES:
  GET    /healthz                          Liveness + mode
  GET    /api/curriculum                   Active rule set
  GET    /api/evaluations                  Recent evaluations
  POST   /api/evaluations                  Upload a transcript document
  POST   /api/evaluations/transcript       Evaluate a structured payload
  GET    /api/evaluations/{id}             One evaluation
  GET    /api/evaluations/{id}/report      Printable HTML report

SECURITY NOTE:
  No authentication middleware. Deploy behind the faculty SSO proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultCORSOrigins are allowed when none are configured.
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/curriculum", h.GetCurriculum)

		r.Route("/evaluations", func(r chi.Router) {
			r.Get("/", h.ListEvaluations)
			r.Post("/", h.UploadEvaluation)
			r.Post("/transcript", h.EvaluateTranscript)
			r.Get("/{id}", h.GetEvaluation)
			r.Get("/{id}/report", h.GetReport)
		})
	})

	return r
}

// requestLogger logs each request once it has been served.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
