package gate_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/gate"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/policy"
)

type staticSession struct {
	principal *actor.Actor
	calls     int
}

func (s *staticSession) Resolve(w http.ResponseWriter, r *http.Request) *actor.Actor {
	s.calls++
	return s.principal
}

func newPrincipal(role policy.Role) *actor.Actor {
	return &actor.Actor{
		ID:       "user-1",
		FullName: "Test User",
		Email:    "user@nexo.test",
		Role:     role,
	}
}

func serve(t *testing.T, principal *actor.Actor, path string) (*httptest.ResponseRecorder, *actor.Actor) {
	t.Helper()

	var seen *actor.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = actor.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	g := gate.New(&staticSession{principal: principal}, logger.New("test", "test"))
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec, seen
}

func TestGateRedirectsAnonymousPagesToLogin(t *testing.T) {
	for _, path := range []string{"/dashboard", "/inventory", "/sales", "/settings", "/"} {
		t.Run(path, func(t *testing.T) {
			rec, _ := serve(t, nil, path)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
	}
}

func TestGateRejectsAnonymousAPI(t *testing.T) {
	rec, _ := serve(t, nil, "/api/v1/products")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateOpenPathsSkipSessionResolution(t *testing.T) {
	sessions := &staticSession{}
	g := gate.New(sessions, logger.New("test", "test"))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/health", "/api/v1/auth/login", "/api/v1/auth/refresh", "/static/app.css"} {
		rec := httptest.NewRecorder()
		g.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Zero(t, sessions.calls)
}

func TestGateLoginPage(t *testing.T) {
	t.Run("anonymous passes through", func(t *testing.T) {
		rec, _ := serve(t, nil, "/login")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("authenticated user bounces to role home", func(t *testing.T) {
		tests := []struct {
			role policy.Role
			home string
		}{
			{policy.RoleAdmin, "/dashboard"},
			{policy.RoleSupervisor, "/inventory"},
			{policy.RoleSeller, "/sales"},
		}
		for _, tt := range tests {
			rec, _ := serve(t, newPrincipal(tt.role), "/login")
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.home, rec.Header().Get("Location"))
		}
	})
}

func TestGateRootRedirectsToRoleHome(t *testing.T) {
	rec, _ := serve(t, newPrincipal(policy.RoleSupervisor), "/")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/inventory", rec.Header().Get("Location"))
}

func TestGateDisallowedZone(t *testing.T) {
	t.Run("seller bounced from dashboard to sales", func(t *testing.T) {
		rec, _ := serve(t, newPrincipal(policy.RoleSeller), "/dashboard")
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/sales", rec.Header().Get("Location"))
	})

	t.Run("seller bounced from inventory page to sales", func(t *testing.T) {
		rec, _ := serve(t, newPrincipal(policy.RoleSeller), "/inventory")
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/sales", rec.Header().Get("Location"))
	})

	t.Run("supervisor bounced from settings to inventory", func(t *testing.T) {
		rec, _ := serve(t, newPrincipal(policy.RoleSupervisor), "/settings")
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/inventory", rec.Header().Get("Location"))
	})

	t.Run("seller gets 403 on inventory API", func(t *testing.T) {
		rec, _ := serve(t, newPrincipal(policy.RoleSeller), "/api/v1/products")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGateAllowedZonePassesWithActor(t *testing.T) {
	rec, seen := serve(t, newPrincipal(policy.RoleSeller), "/api/v1/sales")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.ID)
	assert.Equal(t, policy.RoleSeller, seen.Role)
}

func TestGateOwnHomeNoRedirectLoop(t *testing.T) {
	for _, tt := range []struct {
		role policy.Role
		home string
	}{
		{policy.RoleAdmin, "/dashboard"},
		{policy.RoleSupervisor, "/inventory"},
		{policy.RoleSeller, "/sales"},
	} {
		rec, _ := serve(t, newPrincipal(tt.role), tt.home)
		assert.Equal(t, http.StatusOK, rec.Code, tt.home)
	}
}

func TestGateUngatedPathPassesThrough(t *testing.T) {
	rec, seen := serve(t, newPrincipal(policy.RoleSeller), "/api/v1/navigation")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
}
