package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexo/nexo-backend/internal/org/handler"
	"github.com/nexo/nexo-backend/internal/org/repository"
	"github.com/nexo/nexo-backend/internal/org/service"
	"github.com/nexo/nexo-backend/pkg/actor"
	"github.com/nexo/nexo-backend/pkg/config"
	"github.com/nexo/nexo-backend/pkg/database"
	"github.com/nexo/nexo-backend/pkg/logger"
	"github.com/nexo/nexo-backend/pkg/messaging"
	"github.com/nexo/nexo-backend/pkg/policy"
	"github.com/nexo/nexo-backend/pkg/switchboard"
	"github.com/nexo/nexo-backend/pkg/testutil"
)

type orgTestEnv struct {
	handler     *handler.OrgHandler
	mock        *testutil.MockDB
	switchboard *switchboard.Store
	publisher   *testutil.MockPublisher
}

func newOrgTestEnv(t *testing.T) *orgTestEnv {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)
	sb := switchboard.New()
	publisher := testutil.NewMockPublisher()

	svc := service.NewOrgService(repository.NewOrganizationRepository(db), sb, publisher, log)
	cfg := &config.Config{
		JWT: config.JWTConfig{RefreshExpiry: 7 * 24 * time.Hour},
	}

	return &orgTestEnv{
		handler:     handler.NewOrgHandler(svc, cfg, log),
		mock:        mockDB,
		switchboard: sb,
		publisher:   publisher,
	}
}

func withPrincipal(r *http.Request, role policy.Role) *http.Request {
	return r.WithContext(actor.WithActor(r.Context(), &actor.Actor{
		ID:       "user-1",
		FullName: "Test User",
		Email:    "user@nexo.test",
		Role:     role,
	}))
}

func TestSwitch(t *testing.T) {
	orgID := "6f1c8a7e-4a2b-4c2d-8e9f-0a1b2c3d4e5f"

	t.Run("admin switches and gets the org cookie", func(t *testing.T) {
		env := newOrgTestEnv(t)

		rows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(orgID, "Sucursal Norte", time.Now(), time.Now())
		env.mock.Mock.ExpectQuery(`SELECT .+ FROM organizations WHERE id = \$1`).
			WithArgs(orgID).
			WillReturnRows(rows)

		body := strings.NewReader(`{"organization_id":"` + orgID + `"}`)
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/switchboard", body), policy.RoleAdmin)
		rec := httptest.NewRecorder()

		env.handler.Switch(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var orgCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "nexo_org" {
				orgCookie = c
			}
		}
		require.NotNil(t, orgCookie)
		assert.Equal(t, orgID, orgCookie.Value)

		sel, ok := env.switchboard.Current("user-1")
		require.True(t, ok)
		assert.Equal(t, orgID, sel.OrgID)
		assert.Equal(t, "Sucursal Norte", sel.OrgName)

		env.publisher.AssertEventPublished(t, messaging.EventOrgSwitched)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		env := newOrgTestEnv(t)

		body := strings.NewReader(`{"organization_id":"` + orgID + `"}`)
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/switchboard", body), policy.RoleSupervisor)
		rec := httptest.NewRecorder()

		env.handler.Switch(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		env.publisher.AssertNoEventsPublished(t)
	})

	t.Run("unknown org is a 404", func(t *testing.T) {
		env := newOrgTestEnv(t)

		env.mock.Mock.ExpectQuery(`SELECT .+ FROM organizations WHERE id = \$1`).
			WithArgs(orgID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		body := strings.NewReader(`{"organization_id":"` + orgID + `"}`)
		req := withPrincipal(httptest.NewRequest(http.MethodPost, "/api/v1/switchboard", body), policy.RoleAdmin)
		rec := httptest.NewRecorder()

		env.handler.Switch(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		role  policy.Role
		zones int
		home  string
	}{
		{policy.RoleAdmin, 5, "/dashboard"},
		{policy.RoleSupervisor, 3, "/inventory"},
		{policy.RoleSeller, 1, "/sales"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			env := newOrgTestEnv(t)

			req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/navigation", nil), tt.role)
			rec := httptest.NewRecorder()

			env.handler.Navigation(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"home":"`+tt.home+`"`)
			assert.Equal(t, tt.zones, strings.Count(rec.Body.String(), `"zone":`))
		})
	}
}
