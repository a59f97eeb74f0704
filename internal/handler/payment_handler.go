package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farm2go/internal/model"
	"farm2go/internal/service/payment"
	"farm2go/pkg/utils"
)

// PaymentHandler exposes the transaction ledger endpoints.
type PaymentHandler struct {
	paymentService payment.PaymentService
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(paymentService payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// GetByOrder returns the ledger entry of an order.
func (h *PaymentHandler) GetByOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	txn, err := h.paymentService.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// RecordPayment marks an order's ledger entry completed. Replays of an
// already completed payment return the existing entry.
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	actorID, ok := currentProfileID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req payment.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	txn, err := h.paymentService.RecordPayment(c.Request.Context(), orderID, actorID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// MarkFailed closes an order's ledger entry as failed.
func (h *PaymentHandler) MarkFailed(c *gin.Context) {
	actorID, ok := currentProfileID(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	txn, err := h.paymentService.MarkFailed(c.Request.Context(), orderID, actorID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, txn)
}

// ListByStatus lists ledger entries by status, for reconciliation.
func (h *PaymentHandler) ListByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", model.TransactionStatusPending)
	page, pageSize := pagination(c)

	txns, total, err := h.paymentService.ListByStatus(c.Request.Context(), status, page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, txns, total, page, pageSize)
}
