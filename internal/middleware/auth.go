package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iutils "farm2go/internal/utils"
	"farm2go/pkg/utils"
)

const (
	// AuthorizationHeader header carrying the bearer token
	AuthorizationHeader = "Authorization"
	// BearerPrefix token scheme prefix
	BearerPrefix = "Bearer "
	// ProfileIDKey context key of the authenticated profile ID
	ProfileIDKey = "profile_id"
	// ProfileRoleKey context key of the authenticated role
	ProfileRoleKey = "profile_role"
	// ProfileBarangayKey context key of the authenticated barangay
	ProfileBarangayKey = "profile_barangay"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(ctx context.Context, token string) (*iutils.JWTClaims, error)

// Auth authenticates the request and stores the claims on the context.
func Auth(validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, validate)
		if !ok {
			return
		}

		c.Set(ProfileIDKey, claims.ProfileID)
		c.Set(ProfileRoleKey, claims.Role)
		c.Set(ProfileBarangayKey, claims.Barangay)
		c.Next()
	}
}

// RequireRoles authenticates and additionally restricts access to the
// given roles.
func RequireRoles(validate TokenValidator, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		claims, ok := authenticate(c, validate)
		if !ok {
			return
		}

		if !allowed[claims.Role] {
			utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}

		c.Set(ProfileIDKey, claims.ProfileID)
		c.Set(ProfileRoleKey, claims.Role)
		c.Set(ProfileBarangayKey, claims.Barangay)
		c.Next()
	}
}

func authenticate(c *gin.Context, validate TokenValidator) (*iutils.JWTClaims, bool) {
	header := c.GetHeader(AuthorizationHeader)
	if header == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization header")
		c.Abort()
		return nil, false
	}

	if !strings.HasPrefix(header, BearerPrefix) {
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
		c.Abort()
		return nil, false
	}

	token := strings.TrimPrefix(header, BearerPrefix)
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing token")
		c.Abort()
		return nil, false
	}

	claims, err := validate(c.Request.Context(), token)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid token")
		c.Abort()
		return nil, false
	}

	return claims, true
}

// GetProfileID reads the authenticated profile ID from the context.
func GetProfileID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(ProfileIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// GetProfileRole reads the authenticated role from the context.
func GetProfileRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(ProfileRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// GetProfileBarangay reads the authenticated barangay from the context.
func GetProfileBarangay(c *gin.Context) (string, bool) {
	v, exists := c.Get(ProfileBarangayKey)
	if !exists {
		return "", false
	}
	barangay, ok := v.(string)
	return barangay, ok
}
