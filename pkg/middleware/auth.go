package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
	"github.com/agromart/marketplace/pkg/logger"
)

type principalKey struct{}

// Principal is the verified caller behind a bearer token.
type Principal struct {
	AccountID string
	Role      string
}

// TokenVerifier checks an access token and returns its principal.
type TokenVerifier interface {
	VerifyAccessToken(token string) (Principal, error)
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(v TokenVerifier, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing bearer token"), l)
				return
			}
			p, err := v.VerifyAccessToken(token)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), l)
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p, l)))
		})
	}
}

// OptionalAuth attaches a principal when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v TokenVerifier, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if p, err := v.VerifyAccessToken(token); err == nil {
					r = r.WithContext(withPrincipal(r.Context(), p, l))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole must run after Authenticate.
func RequireRole(l *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), l)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("this action requires role "+strings.Join(roles, " or ")), l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal is exported for handler tests.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func withPrincipal(ctx context.Context, p Principal, l *slog.Logger) context.Context {
	ctx = WithPrincipal(ctx, p)
	ctx = logger.WithPrincipal(ctx, p.AccountID, p.Role)
	return logger.NewContext(ctx, logger.WithContext(ctx, l))
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
