package handlers

import (
	"net/http"
	"testing"

	"uppypro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdminPlansAndPublicPricing(t *testing.T) {
	env := newTestEnv(t)
	billing := NewBillingHandler(env.subscriptions, env.pricing, zap.NewNop())
	billing.RegisterPublicRoutes(env.api)
	NewAdminHandler(env.tenants, env.subscriptions, env.pricing, zap.NewNop()).RegisterRoutes(env.scoped)

	tenant := env.seedTenant(t, "ajans")
	owner := env.seedMember(t, tenant.ID, "sahip@example.com", models.RoleTenantOwner)
	admin := env.seedMember(t, tenant.ID, "ops@uppypro.test", models.RoleAgencyAdmin)
	plan := map[string]interface{}{
		"code":     "pro",
		"name":     "Pro",
		"price":    "499.90",
		"features": []string{"WhatsApp", "Instagram", "Yapay zeka"},
	}

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/plans", body: plan,
		token: env.token(t, owner.UserID, owner.Email), tenantID: tenant.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := env.token(t, admin.UserID, admin.Email)
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/plans", body: plan, token: adminToken, tenantID: tenant.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.PricingPlan
	decodeData(t, w, &created)
	assert.Equal(t, "499.9", created.Price.String())
	assert.Equal(t, "TRY", created.Currency)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/admin/plans", body: plan, token: adminToken, tenantID: tenant.ID})
	assert.Equal(t, http.StatusConflict, w.Code, "plan codes are unique")

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/pricing"})
	require.Equal(t, http.StatusOK, w.Code)
	var plans []models.PricingPlan
	decodeData(t, w, &plans)
	require.Len(t, plans, 1)
	assert.Equal(t, "pro", plans[0].Code)

	inactive := false
	w = env.do(t, request{method: http.MethodPut, path: "/api/v1/admin/plans/" + created.ID.String(), token: adminToken, tenantID: tenant.ID,
		body: map[string]interface{}{"name": "Pro", "price": "599", "is_active": &inactive}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/pricing"})
	decodeData(t, w, &plans)
	assert.Empty(t, plans)
}
