package access

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
)

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *entity.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom returns the principal loaded for this request, if any.
func PrincipalFrom(ctx context.Context) (*entity.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*entity.Principal)
	return p, ok && p != nil
}

// Loader resolves the session cookie into a request principal.
type Loader struct {
	sessions *session.Service
	logger   *zap.SugaredLogger
}

func NewLoader(sessions *session.Service, logger *zap.SugaredLogger) *Loader {
	return &Loader{sessions: sessions, logger: logger}
}

// LoadPrincipal validates the session cookie. A valid session is put in the
// context and its cookie re-issued with the slid expiry; a stale cookie is cleared.
func (l *Loader) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := l.sessions.TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, ok := l.sessions.Validate(r.Context(), token)
		if !ok {
			l.sessions.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		l.sessions.SetCookie(w, p.SessionID, p.ExpiresAt)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Require rejects requests that fail check with the matching JSON error.
func Require(check Check, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFrom(r.Context())
			if _, err := check(p); err != nil {
				apperr.WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PageGuard redirects browsers instead of answering with JSON: anonymous
// visitors go to loginPath, signed-in users failing RequireAuth go to
// deniedPath. Both carry the requested path as ?redirect=.
func PageGuard(loginPath, deniedPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				http.Redirect(w, r, withRedirect(loginPath, r.URL.Path), http.StatusSeeOther)
				return
			}
			if _, err := RequireAuth(p); err != nil {
				http.Redirect(w, r, withRedirect(deniedPath, r.URL.Path), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withRedirect(target, path string) string {
	return target + "?" + url.Values{"redirect": {path}}.Encode()
}
