package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/bugreport/internal/handler"
	"github.com/bugreport/internal/middleware"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	if origins := app.config.Cors.TrustedOrigins; len(origins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}
	r.Use(middleware.Session(app.sessionStore))

	// Health check
	r.Get("/api/health", handler.Health(app.db))
	r.Handle("/metrics", app.metrics.Handler())

	// Report widget
	reportHandler := handler.NewReportHandler(app.logger, app.submissions, app.settingsStore, app.nonces, app.config.SubmitURL(), app.config.MaxUploadSizeMB)
	r.Get("/api/report/bootstrap", reportHandler.Bootstrap)

	perMinute := app.config.RateLimitPerMinute
	r.With(middleware.RateLimit(middleware.PerMinute(perMinute), perMinute)).
		Post("/api/report", reportHandler.Submit)

	// Options page
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		settingsHandler := handler.NewSettingsHandler(app.logger, app.settingsStore, app.nonces, app.mailer)
		r.Get("/api/admin/settings", settingsHandler.Get)
		r.Put("/api/admin/settings", settingsHandler.Update)
		r.Post("/api/admin/settings/test-email", settingsHandler.TestEmail)
	})
	return r
}
