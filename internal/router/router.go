package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/throttle"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

const (
	APIPrefix       = "/api/admin/auth"
	AdminPanelPath  = "/admin-panel"
	LoginPath       = "/login"
	AccessDeniedURL = "/access-denied"
)

// Services are the wired domain services the routes depend on.
type Services struct {
	Users    *user.UserService
	Auth     *auth.Service
	Sessions *session.Service
	Throttle *throttle.Service
	Activity *activity.Service
}

// Options tune the HTTP surface.
type Options struct {
	// TrustProxyHeaders makes X-Forwarded-For / X-Real-IP the client address.
	TrustProxyHeaders bool
	// AdminUI serves the guarded admin pages; defaults to a placeholder.
	AdminUI http.Handler
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

type requestIDKey struct{}

// RequestIDFrom returns the id assigned by RequestIDMiddleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware tags every request with a KSUID, echoed in X-Request-ID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := utilities.NewKSUID()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", RequestIDFrom(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", utilities.ClientIP(r),
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			w.Header().Set("Referrer-Policy", "same-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}

			// auth responses must never be cached
			w.Header().Set("Cache-Control", "no-store")

			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts the admin auth API, the guarded admin pages and health.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, svcs Services, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(SecurityHeadersMiddleware())

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.Warnw("health check failed", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	loader := access.NewLoader(svcs.Sessions, logger)
	authHandler := auth.NewHandler(svcs.Auth, svcs.Sessions, logger)
	userHandler := user.NewHandler(svcs.Users, svcs.Sessions, logger)
	activityHandler := activity.NewHandler(svcs.Activity, logger)
	attemptHandler := throttle.NewHandler(svcs.Throttle, logger)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(loader.LoadPrincipal)

		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(access.Require(access.RequireAuth, logger))
			r.Get("/me", authHandler.Me)
			r.Put("/change-credentials", userHandler.ChangeCredentials)
		})

		r.Group(func(r chi.Router) {
			r.Use(access.Require(access.RequireSuperAdmin, logger))
			r.Get("/users", userHandler.List)
			r.Post("/create-admin", userHandler.Create)
			r.Put("/change-admin/{id}", userHandler.Update)
			r.Get("/activity", activityHandler.List)
			r.Get("/login-attempts", attemptHandler.List)
		})
	})

	ui := opts.AdminUI
	if ui == nil {
		ui = placeholderUI()
	}
	r.Group(func(r chi.Router) {
		r.Use(loader.LoadPrincipal)
		r.Use(access.PageGuard(LoginPath, AccessDeniedURL))
		r.Handle(AdminPanelPath, ui)
		r.Handle(AdminPanelPath+"/*", ui)
	})

	return r
}

func placeholderUI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("admin panel"))
	})
}
