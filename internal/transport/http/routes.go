package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

func Routes(h *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/submissions", h.Submit)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/status", h.QueueStatus)
			r.Post("/process", h.ProcessNow)
			r.Post("/scan", h.ScanBacklog)
		})

		r.Route("/origins", func(r chi.Router) {
			r.Get("/", h.ListOrigins)
			r.Delete("/{id}", h.UnblockOrigin)
		})

		r.Post("/providers/{slug}/test", h.TestProvider)

		r.Get("/logs", h.ListLogs)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.StatsSummary)
			r.Get("/suggestion", h.SuggestThreshold)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}
