package handler

import (
	"net/http"

	authhandler "github.com/nexo/nexo-backend/internal/auth/handler"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/tenant"
)

// ResolveOrg places the caller's active organization into the request
// context. Supervisors and sellers are pinned to their profile's
// organization; admins float on the nexo_org cookie. Requests without
// a resolvable org pass through and fail later at RequireOrg.
func ResolveOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := actor.FromContext(r.Context())
		if principal == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Admins float on the cookie, with the token's default org as
		// fallback. Everyone else is pinned regardless of cookie.
		if principal.IsAdmin() {
			if c, err := r.Cookie(authhandler.OrgCookie); err == nil && c.Value != "" {
				ctx := tenant.WithOrgID(r.Context(), c.Value)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		if principal.OrganizationID != nil && *principal.OrganizationID != "" {
			ctx := tenant.WithOrgID(r.Context(), *principal.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r)
	})
}
