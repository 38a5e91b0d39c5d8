// Package gate enforces role-based zone access for every page and API
// request. It resolves the session principal from cookies, consults the
// role policy table, and either lets the request through with the actor
// attached to its context, or redirects (pages) / rejects (API).
package gate

import (
	"net/http"
	"strings"

	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/errors"
	"github.com/nexo/nexo-backend/pkg/httputil"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/policy"
)

// SessionSource resolves the authenticated principal for a request.
// Implementations may rotate tokens and write refreshed cookies onto
// the response, so it receives the ResponseWriter.
type SessionSource interface {
	Resolve(w http.ResponseWriter, r *http.Request) *actor.Actor
}

// Gate is the authorization middleware.
type Gate struct {
	sessions SessionSource
	logger   *logger.Logger
}

func New(sessions SessionSource, log *logger.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		logger:   log.WithComponent("gate"),
	}
}

const loginPath = "/login"

// open paths never require a session.
var openPaths = map[string]bool{
	"/health":              true,
	"/api/v1/auth/login":   true,
	"/api/v1/auth/refresh": true,
}

func isOpen(path string) bool {
	if openPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// Middleware applies the access decision table to every request.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if isOpen(path) {
			next.ServeHTTP(w, r)
			return
		}

		principal := g.sessions.Resolve(w, r)

		if path == loginPath {
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}
			// Logged-in users have no business on the login page.
			http.Redirect(w, r, policy.HomePath(principal.Role), http.StatusFound)
			return
		}

		if principal == nil {
			if isAPI(path) {
				httputil.ErrorLocalized(w, r, errors.Unauthorized("not authenticated"))
				return
			}
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		ctx := actor.WithActor(r.Context(), principal)
		ctx = httputil.WithUserContext(ctx, principal.ID, principal.Email, string(principal.Role))
		r = r.WithContext(ctx)

		home := policy.HomePath(principal.Role)
		if path == "/" {
			http.Redirect(w, r, home, http.StatusFound)
			return
		}
		if path == home {
			// Already where a bounce would send them.
			next.ServeHTTP(w, r)
			return
		}

		zone, gated := policy.ZoneForPath(path)
		if !gated {
			next.ServeHTTP(w, r)
			return
		}

		if !policy.Allowed(principal.Role, zone) {
			g.logger.Debug().
				Str("user_id", principal.ID).
				Str("role", string(principal.Role)).
				Str("zone", string(zone)).
				Str("path", path).
				Msg("zone access denied")
			if isAPI(path) {
				httputil.ErrorLocalized(w, r, errors.Forbidden("zone not allowed for role"))
				return
			}
			http.Redirect(w, r, home, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}
