package handlers

import (
	"context"
	"net/http"
	"testing"

	"uppypro/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTenantEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	h := NewTenantHandler(env.tenants, zap.NewNop())
	h.RegisterAccountRoutes(env.authed)
	h.RegisterRoutes(env.scoped)
	return env
}

func TestCreateTenantAndMe(t *testing.T) {
	env := newTenantEnv(t)
	userID := uuid.New()
	token := env.token(t, userID, "ayse@example.com")

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/tenants", token: token, body: map[string]interface{}{
		"name": "Ayşe Güzellik",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tenant models.Tenant
	decodeData(t, w, &tenant)
	assert.Equal(t, "ayse-guzellik", tenant.Slug)

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/me", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email       string                `json:"email"`
		Memberships []models.TenantMember `json:"memberships"`
	}
	decodeData(t, w, &me)
	assert.Equal(t, "ayse@example.com", me.Email)
	require.Len(t, me.Memberships, 1)
	assert.Equal(t, models.RoleTenantOwner, me.Memberships[0].Role)

	// the only membership is picked without X-Tenant-ID
	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/tenant", token: token})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/dashboard", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open_conversations":0`)
}

func TestCreateTenantValidation(t *testing.T) {
	env := newTenantEnv(t)
	token := env.token(t, uuid.New(), "ayse@example.com")

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/tenants", token: token, body: map[string]interface{}{
		"name": "Salon",
		"slug": "Büyük Harf",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/tenants", body: map[string]interface{}{"name": "Salon"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenantRoutesEnforceRoles(t *testing.T) {
	env := newTenantEnv(t)
	tenant := env.seedTenant(t, "kuafor")
	owner := env.seedMember(t, tenant.ID, "owner@kuafor.test", models.RoleTenantOwner)
	employee := env.seedMember(t, tenant.ID, "elif@kuafor.test", models.RoleTenantEmployee)
	ownerToken := env.token(t, owner.UserID, owner.Email)
	employeeToken := env.token(t, employee.UserID, employee.Email)

	rename := map[string]interface{}{"name": "Kuaför Elif"}

	w := env.do(t, request{method: http.MethodPatch, path: "/api/v1/tenant", token: employeeToken, tenantID: tenant.ID, body: rename})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, request{method: http.MethodPatch, path: "/api/v1/tenant", token: ownerToken, tenantID: tenant.ID, body: rename})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Kuaför Elif")

	// employees can read the member list but not change it
	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/members", token: employeeToken, tenantID: tenant.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var members []models.TenantMember
	decodeData(t, w, &members)
	assert.Len(t, members, 2)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/v1/members/" + owner.ID.String(), token: employeeToken, tenantID: tenant.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// last owner
	w = env.do(t, request{method: http.MethodPatch, path: "/api/v1/members/" + owner.ID.String(), token: ownerToken, tenantID: tenant.ID,
		body: map[string]interface{}{"role": "tenant_employee"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, request{method: http.MethodPatch, path: "/api/v1/members/" + employee.ID.String(), token: ownerToken, tenantID: tenant.ID,
		body: map[string]interface{}{"role": "agency_admin"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// another tenant's user
	stranger := env.token(t, uuid.New(), "x@y.test")
	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/tenant", token: stranger, tenantID: tenant.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInviteFlowOverHTTP(t *testing.T) {
	env := newTenantEnv(t)
	tenant := env.seedTenant(t, "kuafor")
	owner := env.seedMember(t, tenant.ID, "owner@kuafor.test", models.RoleTenantOwner)
	ownerToken := env.token(t, owner.UserID, owner.Email)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/invites", token: ownerToken, tenantID: tenant.ID,
		body: map[string]interface{}{"email": "Zeynep@Kuafor.test"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &created)
	require.NotEmpty(t, created.Token)

	inviteeID := uuid.New()
	inviteeToken := env.token(t, inviteeID, "zeynep@kuafor.test")
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/invites/accept", token: inviteeToken,
		body: map[string]interface{}{"token": created.Token}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	member, err := env.repos.Members.FindByTenantAndUser(context.Background(), tenant.ID, inviteeID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenantEmployee, member.Role)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/invites/accept", token: inviteeToken,
		body: map[string]interface{}{"token": created.Token}})
	assert.Equal(t, http.StatusConflict, w.Code)
}
