package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/access"
)

// GrantResolver yields the authorization grant for an identity.
type GrantResolver interface {
	Resolve(ctx context.Context, identity string) access.Grant
}

// RequireRole gates a route to identities whose resolved role is in the
// allowed set. It runs after the auth middleware, so the identity is
// already on the context.
func RequireRole(resolver GrantResolver, logger *slog.Logger, roles ...access.Role) func(http.Handler) http.Handler {
	allowed := make(map[access.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := internal.IdentityFromContext(r.Context())
			if !ok || identity == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			grant := resolver.Resolve(r.Context(), identity)
			if grant.Denied() || !allowed[grant.Role] {
				logger.Warn("role gate rejected request",
					"identity", identity,
					"role", grant.Role,
					"path", r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
