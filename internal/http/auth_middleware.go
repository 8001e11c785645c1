package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/warble-app/warble/internal/domain"
	"github.com/warble-app/warble/internal/repository"
	jwtpkg "github.com/warble-app/warble/pkg/jwt"
)

const sessionCookieName = "jwt"

type authContextKey string

const contextKeyUser authContextKey = "warble-current-user"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth resolves the session cookie to a user before invoking the
// handler. The resolved user (password hash stripped) rides on the request
// context.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized: No Token Provided")
			return
		}

		user, err := r.auth.Authorize(req.Context(), cookie.Value)
		if err != nil {
			switch {
			case errors.Is(err, jwtpkg.ErrExpired),
				errors.Is(err, jwtpkg.ErrInvalidSignature),
				errors.Is(err, jwtpkg.ErrMalformed):
				r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
				writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid Token")
			case errors.Is(err, repository.ErrNotFound):
				// Account deleted after the token was issued.
				writeError(w, http.StatusUnauthorized, "User Not Found")
			default:
				r.logger.Error("session resolution failed", "error", err, "path", req.URL.Path)
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
			return
		}

		ctx := context.WithValue(req.Context(), contextKeyUser, user)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// currentUser extracts the authenticated user from context.
func currentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)
	return user, ok
}

// setSessionCookie issues the HTTP-only session cookie with a max-age
// matching the token lifetime.
func (r *Router) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(r.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.secureCookies,
	})
}

// clearSessionCookie expires the session cookie. The token itself stays valid
// until its natural expiry; logout is client-side cookie removal only.
func (r *Router) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.secureCookies,
	})
}
