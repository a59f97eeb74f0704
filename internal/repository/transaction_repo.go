package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"farm2go/internal/model"
	"farm2go/pkg/utils"
)

// TransactionRepository payment transaction repository interface
type TransactionRepository interface {
	// Create transaction
	Create(ctx context.Context, txn *model.Transaction) error

	// Get transaction by ID
	GetByID(ctx context.Context, id uint64) (*model.Transaction, error)

	// Get the transaction of an order
	GetByOrderID(ctx context.Context, orderID uint64) (*model.Transaction, error)

	// Update transaction status
	UpdateStatus(ctx context.Context, id uint64, status string) error

	// Complete a pending transaction, stamping method and paid time
	Complete(ctx context.Context, id uint64, method *string) error

	// List transactions by status
	ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Transaction, int64, error)
}

// transactionRepository payment transaction repository implementation
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a transaction
func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// GetByID gets a transaction by ID
func (r *transactionRepository) GetByID(ctx context.Context, id uint64) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// GetByOrderID gets the transaction of an order
func (r *transactionRepository) GetByOrderID(ctx context.Context, orderID uint64) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// UpdateStatus updates the transaction status. Completion stamps paid_at.
func (r *transactionRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	updates := map[string]interface{}{
		"status": status,
	}

	if status == model.TransactionStatusCompleted {
		now := time.Now()
		updates["paid_at"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrTransactionNotFound
	}
	return nil
}

// Complete completes a pending transaction. The status predicate keeps a
// replayed completion from overwriting a closed entry.
func (r *transactionRepository) Complete(ctx context.Context, id uint64, method *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":  model.TransactionStatusCompleted,
		"paid_at": &now,
	}
	if method != nil {
		updates["payment_method"] = method
	}

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrTransactionNotFound
	}
	return nil
}

// ListByStatus lists transactions by status
func (r *transactionRepository) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Transaction, int64, error) {
	var txns []*model.Transaction
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("status = ?", status)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&txns).Error

	return txns, total, err
}
