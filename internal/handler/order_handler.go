package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farm2go/internal/middleware"
	"farm2go/internal/model"
	"farm2go/internal/service/order"
	"farm2go/pkg/utils"
)

// OrderHandler exposes the order lifecycle endpoints.
type OrderHandler struct {
	orderService order.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrder places an order for the authenticated buyer.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	buyerID, ok := currentProfileID(c)
	if !ok {
		return
	}

	var req order.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	placed, err := h.orderService.PlaceOrder(c.Request.Context(), buyerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, placed)
}

// GetOrder returns an order visible to the requester. Buyers and
// farmers only see their own orders; admins see everything.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ord, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if !canViewOrder(c, ord) {
		utils.AppErrorResponse(c, utils.ErrOrderNotFound)
		return
	}

	utils.SuccessResponse(c, ord)
}

// GetOrderByCode resolves a purchase code, for QR verification at pickup.
func (h *OrderHandler) GetOrderByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "missing code parameter")
		return
	}

	ord, err := h.orderService.GetOrderByCode(c.Request.Context(), code)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if !canViewOrder(c, ord) {
		utils.AppErrorResponse(c, utils.ErrOrderNotFound)
		return
	}

	utils.SuccessResponse(c, ord)
}

// GetQRPayload returns the encoded QR payload of an order.
func (h *OrderHandler) GetQRPayload(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ord, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if !canViewOrder(c, ord) {
		utils.AppErrorResponse(c, utils.ErrOrderNotFound)
		return
	}

	payload, err := h.orderService.BuildQRPayload(ord)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	encoded, err := payload.Encode()
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"purchase_code": ord.PurchaseCode,
		"payload":       payload,
		"encoded":       encoded,
	})
}

// AdvanceStatus moves an order to the requested status.
func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	actorID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	// Cancellation restores stock, so it takes its own path.
	if req.Status == model.OrderStatusCancelled {
		role, _ := middleware.GetProfileRole(c)
		ord, err := h.orderService.CancelOrder(c.Request.Context(), id, actorID, role)
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.SuccessResponse(c, ord)
		return
	}

	ord, err := h.orderService.AdvanceStatus(c.Request.Context(), id, actorID, req.Status)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// CancelOrder cancels an order outright, restoring stock.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actorID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	role, _ := middleware.GetProfileRole(c)
	ord, err := h.orderService.CancelOrder(c.Request.Context(), id, actorID, role)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// RequestCancellation records a buyer's cancellation request.
func (h *OrderHandler) RequestCancellation(c *gin.Context) {
	buyerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ord, err := h.orderService.RequestCancellation(c.Request.Context(), id, buyerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// ResolveCancellation approves or declines a pending cancellation request.
func (h *OrderHandler) ResolveCancellation(c *gin.Context) {
	actorID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Approve      bool   `json:"approve"`
		ResumeStatus string `json:"resume_status,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	role, _ := middleware.GetProfileRole(c)
	ord, err := h.orderService.ResolveCancellation(c.Request.Context(), id, actorID, role, req.Approve, req.ResumeStatus)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// ListBuyerOrders lists the authenticated buyer's orders.
func (h *OrderHandler) ListBuyerOrders(c *gin.Context) {
	buyerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	orders, total, err := h.orderService.ListBuyerOrders(c.Request.Context(), buyerID, page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, orders, total, page, pageSize)
}

// ListFarmerOrders lists orders placed against the authenticated
// farmer's products.
func (h *OrderHandler) ListFarmerOrders(c *gin.Context) {
	farmerID, ok := currentProfileID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)

	orders, total, err := h.orderService.ListFarmerOrders(c.Request.Context(), farmerID, page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, orders, total, page, pageSize)
}

// canViewOrder hides orders from profiles that are not a party to them.
// Admins pass unconditionally.
func canViewOrder(c *gin.Context, ord *model.Order) bool {
	role, _ := middleware.GetProfileRole(c)
	if role == model.RoleAdmin || role == model.RoleSuperAdmin {
		return true
	}

	id, ok := middleware.GetProfileID(c)
	if !ok {
		return false
	}
	return ord.BuyerID == id || ord.FarmerID == id
}
