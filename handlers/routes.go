// Package handlers exposes the auth, recipe and ask endpoints over HTTP.
package handlers

import (
	"net/http"

	"autonomeal/auth"
	"autonomeal/chat"
	"autonomeal/pipeline"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Options struct {
	AuthEnabled    bool
	SecureCookies  bool
	AllowedOrigins []string
	MaxUploadBytes int64
	RatePerMinute  int
	RateBurst      int
}

// Services are the dependencies of the API router. Auth may be nil when
// Options.AuthEnabled is false.
type Services struct {
	Sessions *auth.SessionManager
	Auth     *auth.Service
	Pipeline *pipeline.Service
	Checks   map[string]PingFunc
	Metrics  http.Handler
}

func baseRouter(opts Options, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(opts.AllowedOrigins))
	return r
}

// NewRouter builds the API server routes.
func NewRouter(svc Services, opts Options, logger *zap.Logger) http.Handler {
	r := baseRouter(opts, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		HealthHandler(w, r, svc.Checks, logger)
	})
	if svc.Metrics != nil {
		r.Handle("/metrics", svc.Metrics)
	}
	r.Get("/api/images/{filename}", func(w http.ResponseWriter, r *http.Request) {
		ImageHandler(w, r, svc.Pipeline, logger)
	})

	r.Group(func(r chi.Router) {
		r.Use(LoadSession(svc.Sessions, opts.SecureCookies, logger))

		r.Get("/api/check-auth", CheckAuthHandler)

		if opts.AuthEnabled {
			r.Route("/auth", func(r chi.Router) {
				if opts.RatePerMinute > 0 {
					r.Use(RateLimit(opts.RatePerMinute, opts.RateBurst, logger))
				}
				r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
					LoginHandler(w, r, svc.Auth, opts.SecureCookies, logger)
				})
				r.Post("/signup", func(w http.ResponseWriter, r *http.Request) {
					SignupHandler(w, r, svc.Auth, opts.SecureCookies, logger)
				})
				r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
					LogOutHandler(w, r, svc.Auth, opts.SecureCookies)
				})
			})
		}

		r.Group(func(r chi.Router) {
			if opts.AuthEnabled {
				r.Use(RequireAuth(logger))
			}
			r.Post("/api/analyze-image", func(w http.ResponseWriter, r *http.Request) {
				AnalyzeImageHandler(w, r, svc.Pipeline, opts.MaxUploadBytes, logger)
			})
			r.Post("/api/generate-recipe", func(w http.ResponseWriter, r *http.Request) {
				GenerateRecipeHandler(w, r, svc.Pipeline, logger)
			})
			r.Post("/api/generate-dish-image", func(w http.ResponseWriter, r *http.Request) {
				GenerateDishImageHandler(w, r, svc.Pipeline, logger)
			})
		})
	})

	return r
}

// NewAskRouter builds the conversation server routes. The session cookie
// names the conversation.
func NewAskRouter(sessions *auth.SessionManager, svc *chat.Service, checks map[string]PingFunc, opts Options, logger *zap.Logger) http.Handler {
	r := baseRouter(opts, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		HealthHandler(w, r, checks, logger)
	})

	r.Group(func(r chi.Router) {
		r.Use(LoadSession(sessions, opts.SecureCookies, logger))
		r.Post("/ask", func(w http.ResponseWriter, r *http.Request) {
			AskHandler(w, r, svc, logger)
		})
		r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
			HistoryHandler(w, r, svc, logger)
		})
		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			ResetHandler(w, r, svc, logger)
		})
	})

	return r
}
