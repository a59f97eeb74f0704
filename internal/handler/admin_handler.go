package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"farm2go/internal/service/admin"
	"farm2go/pkg/maintenance"
	"farm2go/pkg/utils"
)

// AdminHandler exposes moderation and administration endpoints. Role
// enforcement lives in the route wiring.
type AdminHandler struct {
	adminService admin.AdminService
	maintenance  *maintenance.Manager
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(adminService admin.AdminService, maintenanceMgr *maintenance.Manager) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		maintenance:  maintenanceMgr,
	}
}

// ModerateUser approves or rejects a pending account.
func (h *AdminHandler) ModerateUser(c *gin.Context) {
	adminID, ok := currentProfileID(c)
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	profile, err := h.adminService.ModerateUser(c.Request.Context(), adminID, profileID, req.Approve)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, profile)
}

// ModerateProduct approves or rejects a pending listing.
func (h *AdminHandler) ModerateProduct(c *gin.Context) {
	adminID, ok := currentProfileID(c)
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	product, err := h.adminService.ModerateProduct(c.Request.Context(), adminID, productID, req.Approve)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// ProvisionAdmin creates a barangay admin account.
func (h *AdminHandler) ProvisionAdmin(c *gin.Context) {
	actorID, ok := currentProfileID(c)
	if !ok {
		return
	}

	var req admin.ProvisionAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	profile, err := h.adminService.ProvisionAdmin(c.Request.Context(), actorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"id":       profile.ID,
		"email":    profile.Email,
		"role":     profile.Role,
		"barangay": profile.Barangay,
	})
}

// RemoveUser removes an account.
func (h *AdminHandler) RemoveUser(c *gin.Context) {
	adminID, ok := currentProfileID(c)
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.RemoveUser(c.Request.Context(), adminID, profileID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "user removed")
}

// Announce broadcasts a message to every approved profile of a role.
func (h *AdminHandler) Announce(c *gin.Context) {
	adminID, ok := currentProfileID(c)
	if !ok {
		return
	}

	var req admin.AnnounceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.adminService.Announce(c.Request.Context(), adminID, &req); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "announcement sent")
}

// ListProfiles lists profiles filtered by role and status.
func (h *AdminHandler) ListProfiles(c *gin.Context) {
	page, pageSize := pagination(c)
	role := c.Query("role")
	status := c.Query("status")

	profiles, total, err := h.adminService.ListProfiles(c.Request.Context(), page, pageSize, role, status)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, profiles, total, page, pageSize)
}

// GetMaintenance reports the maintenance window state.
func (h *AdminHandler) GetMaintenance(c *gin.Context) {
	active := h.maintenance.IsActive(c.Request.Context())
	resp := gin.H{"active": active}
	if active {
		resp["notice"] = h.maintenance.GetNotice(c.Request.Context())
	}
	utils.SuccessResponse(c, resp)
}

// SetMaintenance opens or closes a maintenance window.
func (h *AdminHandler) SetMaintenance(c *gin.Context) {
	adminID, ok := currentProfileID(c)
	if !ok {
		return
	}

	var req struct {
		Enabled    bool   `json:"enabled"`
		Message    string `json:"message" binding:"omitempty,max=500"`
		RetryAfter int    `json:"retry_after" binding:"omitempty,gte=0"`
		AllowReads bool   `json:"allow_reads"`
		TTLSeconds int    `json:"ttl_seconds" binding:"omitempty,gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if !req.Enabled {
		if err := h.maintenance.Disable(ctx); err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, "maintenance window closed")
		return
	}

	notice := &maintenance.Notice{
		Message:     req.Message,
		RetryAfter:  req.RetryAfter,
		AllowReads:  req.AllowReads,
		ActivatedBy: adminID,
	}
	if notice.Message == "" {
		notice.Message = "The marketplace is under maintenance, please try again later"
	}

	var err error
	if req.TTLSeconds > 0 {
		err = h.maintenance.EnableFor(ctx, notice, time.Duration(req.TTLSeconds)*time.Second)
	} else {
		err = h.maintenance.Enable(ctx, notice)
	}
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "maintenance window opened")
}

// ListPendingProducts lists listings waiting for review.
func (h *AdminHandler) ListPendingProducts(c *gin.Context) {
	page, pageSize := pagination(c)

	products, total, err := h.adminService.ListPendingProducts(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, products, total, page, pageSize)
}
