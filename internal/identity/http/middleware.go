package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fairmarket/identity/internal/identity/domain"
	"github.com/fairmarket/identity/internal/identity/service"
	"github.com/fairmarket/identity/pkg/httpx"
	"github.com/fairmarket/identity/pkg/jwtx"
	"github.com/fairmarket/identity/pkg/slogx"
)

// Gate messages. Tests assert on these substrings, so "not an admin" and
// "insufficient permissions" must stay distinct.
const (
	msgNotAdmin     = "Forbidden - Not an admin"
	msgInsufficient = "Insufficient permissions"
)

// RequireRole gates a route behind a minimum administrator role. Missing or
// invalid bearer credentials yield 401; an authenticated subject without an
// active admin record or with too low a rank yields 403 with distinct
// messages.
func RequireRole(v jwtx.Verifier, admins *service.AdminService, required domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				httpx.WriteError(w, http.StatusUnauthorized,
					"unauthenticated", "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("bearer token verification failed", "err", err)
				httpx.WriteError(w, http.StatusUnauthorized,
					"unauthenticated", "token verification failed")
				return
			}

			admin, err := admins.Authorize(ctx, claims.Subject, required)
			switch {
			case err == nil:
				// fall through
			case errors.Is(err, service.ErrNotAdmin):
				httpx.WriteError(w, http.StatusForbidden, "forbidden", msgNotAdmin)
				return
			case errors.Is(err, service.ErrInsufficientPermission):
				httpx.WriteError(w, http.StatusForbidden, "forbidden", msgInsufficient)
				return
			default:
				log.Error("authorization lookup failed", "err", err)
				httpx.WriteError(w, http.StatusInternalServerError,
					"server_error", "authorization check failed")
				return
			}

			ctx = httpx.ContextWithSubject(ctx, admin.ID, admin.Role.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
