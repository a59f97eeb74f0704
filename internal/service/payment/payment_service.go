package payment

import (
	"context"
	"errors"
	"fmt"

	"farm2go/internal/model"
	"farm2go/internal/repository"
	"farm2go/internal/service/notify"
	"farm2go/pkg/log"
	"farm2go/pkg/utils"
)

// OrderAdvancer is the slice of the order service the payment flow
// needs: moving a paid order from pending to confirmed.
type OrderAdvancer interface {
	AdvanceStatus(ctx context.Context, orderID, actorID uint64, target string) (*model.Order, error)
}

// RecordPaymentRequest payment completion input
type RecordPaymentRequest struct {
	Amount        int64   `json:"amount" binding:"required,gt=0"`
	PaymentMethod *string `json:"payment_method,omitempty" binding:"omitempty,oneof=cash gcash maya online"`
}

// PaymentService payment ledger interface
type PaymentService interface {
	// Get the transaction of an order
	GetByOrder(ctx context.Context, orderID uint64) (*model.Transaction, error)

	// Record a completed payment and confirm the order
	RecordPayment(ctx context.Context, orderID, actorID uint64, req *RecordPaymentRequest) (*model.Transaction, error)

	// Close the ledger entry of a payment that fell through
	MarkFailed(ctx context.Context, orderID, actorID uint64) (*model.Transaction, error)

	// List transactions by status
	ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Transaction, int64, error)
}

// paymentService payment ledger implementation
type paymentService struct {
	orderRepo       repository.OrderRepository
	transactionRepo repository.TransactionRepository
	orders          OrderAdvancer
	notifier        notify.NotifyService
}

// NewPaymentService creates a payment service
func NewPaymentService(
	orderRepo repository.OrderRepository,
	transactionRepo repository.TransactionRepository,
	orders OrderAdvancer,
	notifier notify.NotifyService,
) PaymentService {
	return &paymentService{
		orderRepo:       orderRepo,
		transactionRepo: transactionRepo,
		orders:          orders,
		notifier:        notifier,
	}
}

// GetByOrder gets the transaction of an order
func (s *paymentService) GetByOrder(ctx context.Context, orderID uint64) (*model.Transaction, error) {
	return s.transactionRepo.GetByOrderID(ctx, orderID)
}

// RecordPayment completes the order's pending ledger entry and moves the
// order into confirmed. Replays of a completed payment are answered with
// the existing entry instead of an error.
func (s *paymentService) RecordPayment(ctx context.Context, orderID, actorID uint64, req *RecordPaymentRequest) (*model.Transaction, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txn.IsCompleted() {
		return txn, nil
	}
	if txn.IsFailed() {
		return nil, utils.WrapError(
			fmt.Errorf("transaction %d already failed", txn.ID),
			utils.CodeIllegalTransition, "payment ledger entry is closed")
	}

	if req.Amount > order.TotalPrice {
		return nil, utils.ErrAmountExceedsTotal
	}
	// Ledger entries settle in full; partial payments are not accepted.
	if req.Amount != txn.Amount {
		return nil, utils.WrapError(
			fmt.Errorf("paid %d, expected %d", req.Amount, txn.Amount),
			utils.CodeAmountExceedsTotal, "amount does not match order total")
	}

	if err := s.transactionRepo.Complete(ctx, txn.ID, req.PaymentMethod); err != nil {
		// Lost a race with another completion; re-read and answer with
		// whatever won.
		if errors.Is(err, utils.ErrTransactionNotFound) {
			current, rerr := s.transactionRepo.GetByOrderID(ctx, orderID)
			if rerr == nil && current.IsCompleted() {
				return current, nil
			}
		}
		return nil, err
	}
	txn.Status = model.TransactionStatusCompleted
	txn.PaymentMethod = req.PaymentMethod

	// Payment unlocks the confirmed gate; push the order through it.
	if order.EffectiveStatus() == model.OrderStatusPending {
		if updated, err := s.orders.AdvanceStatus(ctx, orderID, actorID, model.OrderStatusConfirmed); err != nil {
			log.Warnf("Order %d paid but confirmation failed: %v", orderID, err)
		} else {
			order = updated
		}
	}

	if err := s.notifier.NotifyPaymentReceived(ctx, order, txn, actorID); err != nil {
		log.Warnf("Payment notification for order %d failed: %v", orderID, err)
	}

	log.WithFields(map[string]interface{}{
		"order_id":       orderID,
		"transaction_id": txn.ID,
		"amount":         txn.Amount,
		"actor_id":       actorID,
	}).Info("Payment recorded")

	return txn, nil
}

// MarkFailed closes a pending ledger entry as failed
func (s *paymentService) MarkFailed(ctx context.Context, orderID, actorID uint64) (*model.Transaction, error) {
	txn, err := s.transactionRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if txn.IsFailed() {
		return txn, nil
	}
	if txn.IsCompleted() {
		return nil, utils.WrapError(
			fmt.Errorf("transaction %d already completed", txn.ID),
			utils.CodeIllegalTransition, "completed payment cannot be failed")
	}

	if err := s.transactionRepo.UpdateStatus(ctx, txn.ID, model.TransactionStatusFailed); err != nil {
		return nil, err
	}
	txn.Status = model.TransactionStatusFailed

	log.WithFields(map[string]interface{}{
		"order_id":       orderID,
		"transaction_id": txn.ID,
		"actor_id":       actorID,
	}).Info("Payment marked failed")

	return txn, nil
}

// ListByStatus lists transactions by status
func (s *paymentService) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.ListByStatus(ctx, status, page, pageSize)
}
