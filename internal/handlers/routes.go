package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/wedding-api/internal/auth"
	"github.com/gdg-garage/wedding-api/internal/config"
	"github.com/gdg-garage/wedding-api/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Handlers struct {
	Auth    *auth.AdminAuth
	RSVP    *RSVPHandler
	Photo   *PhotoHandler
	Metrics *metrics.Metrics
}

func RegisterRoutes(r *chi.Mux, cfg *config.Config, log zerolog.Logger, h Handlers) huma.API {
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	if cfg.EnableCORS {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", auth.HeaderName},
			AllowCredentials: true,
		}).Handler)
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get(uploadsPath+"{filename}", h.Photo.ServeFile)
	r.With(h.Auth.AdminMiddleware).Handle("/metrics", h.Metrics.Handler())

	config := huma.DefaultConfig("Wedding API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"adminKey": {
			Type: "apiKey",
			In:   "header",
			Name: auth.HeaderName,
		},
		"adminCookie": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	api := humachi.New(r, config)
	RegisterOperations(api, h)
	return api
}

func adminOnly(o *huma.Operation) {
	o.Tags = []string{"admin"}
	o.Security = []map[string][]string{{"adminKey": {}}, {"adminCookie": {}}}
}

func RegisterOperations(api huma.API, h Handlers) {
	huma.Post(api, "/api/rsvp", h.RSVP.HandleSubmit, func(o *huma.Operation) {
		o.Summary = "Submit an RSVP"
		o.Tags = []string{"rsvp"}
		o.DefaultStatus = http.StatusCreated
	})

	huma.Post(api, "/api/photos", h.Photo.HandleUpload, func(o *huma.Operation) {
		o.Summary = "Upload a guest photo"
		o.Tags = []string{"photos"}
		o.DefaultStatus = http.StatusCreated
		o.MaxBodyBytes = h.Photo.MaxBodyBytes()
	})
	huma.Get(api, "/api/photos", h.Photo.HandleListApproved, func(o *huma.Operation) {
		o.Summary = "List approved photos"
		o.Tags = []string{"photos"}
	})

	huma.Post(api, "/api/admin/login", h.Auth.HandleLogin, func(o *huma.Operation) {
		o.Summary = "Exchange the admin key for a session cookie"
		o.Tags = []string{"admin"}
	})
	huma.Get(api, "/api/admin/photos", h.Photo.HandleAdminList, adminOnly)
	huma.Patch(api, "/api/admin/photos/{id}/approval", h.Photo.HandleToggleApproval, adminOnly)
	huma.Delete(api, "/api/admin/photos/{id}", h.Photo.HandleDelete, adminOnly)
	huma.Get(api, "/api/admin/rsvps", h.RSVP.HandleAdminList, adminOnly)
}
