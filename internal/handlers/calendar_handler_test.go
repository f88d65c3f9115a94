package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"uppypro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCalendarEnv(t *testing.T) (*testEnv, *models.Tenant, string, string) {
	t.Helper()
	env := newTestEnv(t)
	NewCalendarHandler(env.calendar, zap.NewNop()).RegisterRoutes(env.scoped)

	tenant := env.seedTenant(t, "berber")
	owner := env.seedMember(t, tenant.ID, "sahip@example.com", models.RoleTenantOwner)
	employee := env.seedMember(t, tenant.ID, "calisan@example.com", models.RoleTenantEmployee)
	return env, tenant,
		env.token(t, owner.UserID, owner.Email),
		env.token(t, employee.UserID, employee.Email)
}

func TestLocationValidation(t *testing.T) {
	env, tenant, ownerToken, employeeToken := newCalendarEnv(t)
	post := func(token string, body interface{}) int {
		return env.do(t, request{method: http.MethodPost, path: "/api/v1/locations",
			token: token, tenantID: tenant.ID, body: body}).Code
	}

	assert.Equal(t, http.StatusBadRequest, post(ownerToken, map[string]interface{}{
		"name":          "Merkez",
		"working_hours": map[string]interface{}{"monday": map[string]string{"open": "9:00", "close": "18:00"}},
	}))
	assert.Equal(t, http.StatusBadRequest, post(ownerToken, map[string]interface{}{
		"name":          "Merkez",
		"working_hours": map[string]interface{}{"pazartesi": map[string]string{"open": "09:00", "close": "18:00"}},
	}))
	assert.Equal(t, http.StatusBadRequest, post(ownerToken, map[string]interface{}{
		"name":          "Merkez",
		"working_hours": map[string]interface{}{"monday": map[string]string{"open": "09:00"}},
	}))

	valid := map[string]interface{}{
		"name": "Merkez",
		"working_hours": map[string]interface{}{
			"monday": map[string]string{"open": "09:00", "close": "18:00"},
			"sunday": map[string]bool{"closed": true},
		},
	}
	assert.Equal(t, http.StatusForbidden, post(employeeToken, valid))
	assert.Equal(t, http.StatusCreated, post(ownerToken, valid))

	w := env.do(t, request{method: http.MethodGet, path: "/api/v1/locations", token: employeeToken, tenantID: tenant.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var locations []models.TenantLocation
	decodeData(t, w, &locations)
	require.Len(t, locations, 1)
	assert.True(t, locations[0].WorkingHours["sunday"].Closed)
}

func TestAppointmentBooking(t *testing.T) {
	env, tenant, ownerToken, employeeToken := newCalendarEnv(t)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/locations", token: ownerToken, tenantID: tenant.ID,
		body: map[string]interface{}{
			"name": "Merkez",
			"working_hours": map[string]interface{}{
				"tuesday": map[string]string{"open": "09:00", "close": "18:00"},
			},
		}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var loc models.TenantLocation
	decodeData(t, w, &loc)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/employees", token: ownerToken, tenantID: tenant.ID,
		body: map[string]interface{}{"full_name": "Mehmet Usta", "location_id": loc.ID, "color": "#22c55e"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var emp models.TenantEmployee
	decodeData(t, w, &emp)

	istanbul, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	// 2030-01-08 is a Tuesday
	start := time.Date(2030, 1, 8, 14, 0, 0, 0, istanbul)
	book := func(from time.Time) *httptest.ResponseRecorder {
		return env.do(t, request{method: http.MethodPost, path: "/api/v1/appointments", token: employeeToken, tenantID: tenant.ID,
			body: map[string]interface{}{
				"employee_id":   emp.ID,
				"customer_name": "Veli",
				"starts_at":     from.Format(time.RFC3339),
				"ends_at":       from.Add(time.Hour).Format(time.RFC3339),
			}})
	}

	first := book(start)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Contains(t, first.Body.String(), `"source":"manual"`)
	assert.Contains(t, first.Body.String(), loc.ID.String(), "location comes from the employee")

	assert.Equal(t, http.StatusConflict, book(start.Add(30*time.Minute)).Code)
	assert.Equal(t, http.StatusCreated, book(start.Add(time.Hour)).Code, "back to back is allowed")
	assert.Equal(t, http.StatusBadRequest, book(start.Add(5*time.Hour)).Code, "ends after closing")
	assert.Equal(t, http.StatusCreated, book(start.Add(24*time.Hour)).Code, "wednesday has no hours entry")

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/appointments?from=2030-01-08T00:00:00Z&to=2030-01-09T00:00:00Z",
		token: employeeToken, tenantID: tenant.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var appts []models.Appointment
	decodeData(t, w, &appts)
	assert.Len(t, appts, 2)

	w = env.do(t, request{method: http.MethodDelete, path: "/api/v1/appointments/" + appts[0].ID.String(),
		token: employeeToken, tenantID: tenant.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"canceled"`)
}
