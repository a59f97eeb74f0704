package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farm2go/internal/model"
	"farm2go/internal/service/product"
	"farm2go/pkg/utils"
)

// ProductHandler exposes the product catalog endpoints.
type ProductHandler struct {
	productService product.ProductService
}

// NewProductHandler creates a product handler
func NewProductHandler(productService product.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// CreateProduct creates a listing for the authenticated farmer.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}

	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	created, err := h.productService.CreateProduct(c.Request.Context(), farmerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, created)
}

// UpdateProduct updates a farmer's own listing.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req product.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	updated, err := h.productService.UpdateProduct(c.Request.Context(), farmerID, id, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, updated)
}

// DeleteProduct removes a farmer's own listing.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), farmerID, id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "product deleted")
}

// Restock adds inventory to a farmer's own listing.
func (h *ProductHandler) Restock(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	restocked, err := h.productService.Restock(c.Request.Context(), farmerID, id, req.Quantity)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, restocked)
}

// GetProduct returns a single product.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, p)
}

// ListProducts lists approved products for the marketplace feed.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, pageSize := pagination(c)

	products, total, err := h.productService.ListProducts(c.Request.Context(), page, pageSize, model.ProductStatusApproved)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, products, total, page, pageSize)
}

// ListMyProducts lists the authenticated farmer's listings, pending
// and rejected ones included.
func (h *ProductHandler) ListMyProducts(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	products, total, err := h.productService.ListByFarmer(c.Request.Context(), farmerID, page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, products, total, page, pageSize)
}

// ListLowStock lists the farmer's listings at or below their threshold.
func (h *ProductHandler) ListLowStock(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}

	products, err := h.productService.ListLowStock(c.Request.Context(), farmerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}
