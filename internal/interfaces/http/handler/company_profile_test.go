package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingapp "github.com/billing/backend/internal/application/billing"
)

type profileTestEnv struct {
	invoiceTestEnv
	repo *mockProfileRepository
}

func setupProfileTest(t *testing.T) *profileTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMockProfileRepository()
	service := billingapp.NewCompanyProfileService(repo, zap.NewNop())

	router := gin.New()
	NewCompanyProfileHandler(service).RegisterRoutes(router.Group("/api/v1"))

	return &profileTestEnv{
		invoiceTestEnv: invoiceTestEnv{router: router},
		repo:           repo,
	}
}

func TestCompanyProfileHandler_Get(t *testing.T) {
	t.Run("first access creates an empty profile", func(t *testing.T) {
		env := setupProfileTest(t)
		userID := uuid.New()

		w := env.request(t, http.MethodGet, "/api/v1/billing/company-profile", nil,
			map[string]string{"X-User-ID": userID.String()})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp billingapp.CompanyProfileResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
		assert.Equal(t, userID, resp.UserID)
		assert.Empty(t, resp.CompanyName)
		assert.Equal(t, 1, resp.Version)
	})

	t.Run("missing user header returns 401", func(t *testing.T) {
		env := setupProfileTest(t)
		w := env.request(t, http.MethodGet, "/api/v1/billing/company-profile", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCompanyProfileHandler_Update(t *testing.T) {
	t.Run("updates bank details", func(t *testing.T) {
		env := setupProfileTest(t)
		userID := uuid.New()
		headers := map[string]string{"X-User-ID": userID.String()}

		w := env.request(t, http.MethodGet, "/api/v1/billing/company-profile", nil, headers)
		require.Equal(t, http.StatusOK, w.Code)
		var created billingapp.CompanyProfileResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &created))

		w = env.request(t, http.MethodPut, "/api/v1/billing/company-profile", map[string]any{
			"company_name":     "Moja Firma",
			"bank_account":     "SK3112000000198742637541",
			"expected_version": created.Version,
		}, headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp billingapp.CompanyProfileResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
		assert.Equal(t, "Moja Firma", resp.CompanyName)
		assert.Equal(t, "SK3112000000198742637541", resp.BankAccount)
		assert.Equal(t, created.Version+1, resp.Version)
	})

	t.Run("stale version returns conflict", func(t *testing.T) {
		env := setupProfileTest(t)
		userID := uuid.New()
		headers := map[string]string{"X-User-ID": userID.String()}

		w := env.request(t, http.MethodGet, "/api/v1/billing/company-profile", nil, headers)
		require.Equal(t, http.StatusOK, w.Code)
		var created billingapp.CompanyProfileResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &created))

		w = env.request(t, http.MethodPut, "/api/v1/billing/company-profile", map[string]any{
			"company_name":     "First",
			"expected_version": created.Version,
		}, headers)
		require.Equal(t, http.StatusOK, w.Code)

		w = env.request(t, http.MethodPut, "/api/v1/billing/company-profile", map[string]any{
			"company_name":     "Second",
			"expected_version": created.Version,
		}, headers)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
