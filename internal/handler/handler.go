package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farm2go/internal/middleware"
	"farm2go/pkg/utils"
)

// parseIDParam parses a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := utils.ValidateID(c.Param(name))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

// pagination reads page and page_size query parameters with sane bounds.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// currentProfileID reads the authenticated profile from the context.
// Routes behind the auth middleware always have it; a miss means the
// route was wired without it.
func currentProfileID(c *gin.Context) (uint64, bool) {
	id, ok := middleware.GetProfileID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return id, true
}
