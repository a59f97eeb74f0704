package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"farm2go/internal/middleware"
	"farm2go/internal/service/auth"
	"farm2go/pkg/utils"
)

// AuthHandler exposes registration and session endpoints.
type AuthHandler struct {
	authService auth.AuthService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(authService auth.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new profile. Accounts start pending and cannot
// log in until a barangay admin approves them.
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"id":     profile.ID,
		"email":  profile.Email,
		"role":   profile.Role,
		"status": profile.Status,
	})
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	tokens, profile, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"tokens": tokens,
		"profile": gin.H{
			"id":       profile.ID,
			"name":     profile.Name,
			"email":    profile.Email,
			"role":     profile.Role,
			"barangay": profile.Barangay,
		},
	})
}

// Logout invalidates the current access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	profileID, ok := currentProfileID(c)
	if !ok {
		return
	}

	token := strings.TrimPrefix(c.GetHeader(middleware.AuthorizationHeader), middleware.BearerPrefix)
	if err := h.authService.Logout(c.Request.Context(), profileID, token); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "logged out")
}

// RefreshToken issues a new token pair from a refresh token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, tokens)
}

// ChangePassword rotates the password and revokes the active session.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	profileID, ok := currentProfileID(c)
	if !ok {
		return
	}

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), profileID, req.OldPassword, req.NewPassword); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "password changed")
}
