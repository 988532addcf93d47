package handler

import (
	"github.com/gin-gonic/gin"

	billingapp "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/interfaces/http/router"
)

// CompanyProfileHandler handles company profile API endpoints
type CompanyProfileHandler struct {
	BaseHandler
	profileService *billingapp.CompanyProfileService
}

// NewCompanyProfileHandler creates a new CompanyProfileHandler
func NewCompanyProfileHandler(profileService *billingapp.CompanyProfileService) *CompanyProfileHandler {
	return &CompanyProfileHandler{
		profileService: profileService,
	}
}

// RegisterRoutes registers company profile routes on the given group
func (h *CompanyProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	profile := router.NewDomainGroup("company-profile", "/billing/company-profile")
	profile.GET("", h.Get).
		PUT("", h.Update)
	profile.RegisterRoutes(rg)
}

// Get godoc
// @Summary      Get the acting user's company profile
// @Description  Returns the profile, creating an empty one on first access
// @Tags         company-profile
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.CompanyProfileResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/company-profile [get]
func (h *CompanyProfileHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identification required")
		return
	}

	profile, err := h.profileService.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profile)
}

// Update godoc
// @Summary      Update the acting user's company profile
// @Tags         company-profile
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Acting user" format(uuid)
// @Param        request body billingapp.UpdateCompanyProfileRequest true "Profile update request"
// @Success      200 {object} dto.Response{data=billingapp.CompanyProfileResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/company-profile [put]
func (h *CompanyProfileHandler) Update(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identification required")
		return
	}

	var req billingapp.UpdateCompanyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profile)
}
