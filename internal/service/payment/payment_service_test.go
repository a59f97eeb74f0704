package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm2go/internal/model"
	"farm2go/pkg/utils"
)

type fakeOrderRepo struct {
	orders map[uint64]*model.Order
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error { return nil }

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, utils.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetByPurchaseCode(ctx context.Context, code string) (*model.Order, error) {
	return nil, utils.ErrOrderNotFound
}

func (f *fakeOrderRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	return nil
}

func (f *fakeOrderRepo) UpdateStatusAndNotes(ctx context.Context, id uint64, status string, notes *string) error {
	return nil
}

func (f *fakeOrderRepo) UpdateNotes(ctx context.Context, id uint64, notes *string) error {
	return nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id uint64) error { return nil }

func (f *fakeOrderRepo) ListBuyerOrders(ctx context.Context, buyerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) ListFarmerOrders(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

type fakeTransactionRepo struct {
	byOrder map[uint64]*model.Transaction
}

func (f *fakeTransactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	f.byOrder[txn.OrderID] = txn
	return nil
}

func (f *fakeTransactionRepo) GetByID(ctx context.Context, id uint64) (*model.Transaction, error) {
	for _, t := range f.byOrder {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, utils.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) GetByOrderID(ctx context.Context, orderID uint64) (*model.Transaction, error) {
	t, ok := f.byOrder[orderID]
	if !ok {
		return nil, utils.ErrTransactionNotFound
	}
	return t, nil
}

func (f *fakeTransactionRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	for _, t := range f.byOrder {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return utils.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) Complete(ctx context.Context, id uint64, method *string) error {
	for _, t := range f.byOrder {
		if t.ID == id && t.IsPending() {
			t.Status = model.TransactionStatusCompleted
			t.PaymentMethod = method
			now := time.Now()
			t.PaidAt = &now
			return nil
		}
	}
	return utils.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Transaction, int64, error) {
	return nil, 0, nil
}

type fakeAdvancer struct {
	calls  int
	target string
	err    error
}

func (f *fakeAdvancer) AdvanceStatus(ctx context.Context, orderID, actorID uint64, target string) (*model.Order, error) {
	f.calls++
	f.target = target
	if f.err != nil {
		return nil, f.err
	}
	return &model.Order{ID: orderID, Status: target}, nil
}

type fakeNotifier struct {
	payments int
}

func (f *fakeNotifier) NotifyOrderCreated(ctx context.Context, order *model.Order) error { return nil }

func (f *fakeNotifier) NotifyOrderStatusChanged(ctx context.Context, order *model.Order, actorID uint64) error {
	return nil
}

func (f *fakeNotifier) NotifyCancellationRequested(ctx context.Context, order *model.Order) error {
	return nil
}

func (f *fakeNotifier) NotifyPaymentReceived(ctx context.Context, order *model.Order, txn *model.Transaction, actorID uint64) error {
	f.payments++
	return nil
}

func (f *fakeNotifier) NotifyLowStock(ctx context.Context, product *model.Product) error { return nil }

func (f *fakeNotifier) NotifyUserModeration(ctx context.Context, profile *model.Profile, approved bool, adminID uint64) error {
	return nil
}

func (f *fakeNotifier) NotifyProductModeration(ctx context.Context, product *model.Product, approved bool, adminID uint64) error {
	return nil
}

func (f *fakeNotifier) NotifyProductEvent(ctx context.Context, eventType string, product *model.Product, actorID uint64) error {
	return nil
}

func (f *fakeNotifier) Announce(ctx context.Context, senderID uint64, role, title, message string) error {
	return nil
}

type paymentEnv struct {
	svc      PaymentService
	orders   *fakeOrderRepo
	txns     *fakeTransactionRepo
	advancer *fakeAdvancer
	notifier *fakeNotifier
}

func newPaymentEnv(order *model.Order, txn *model.Transaction) *paymentEnv {
	env := &paymentEnv{
		orders:   &fakeOrderRepo{orders: map[uint64]*model.Order{}},
		txns:     &fakeTransactionRepo{byOrder: map[uint64]*model.Transaction{}},
		advancer: &fakeAdvancer{},
		notifier: &fakeNotifier{},
	}
	if order != nil {
		env.orders.orders[order.ID] = order
	}
	if txn != nil {
		env.txns.byOrder[txn.OrderID] = txn
	}
	env.svc = NewPaymentService(env.orders, env.txns, env.advancer, env.notifier)
	return env
}

func pendingOrder() *model.Order {
	return &model.Order{
		ID:         1,
		BuyerID:    10,
		FarmerID:   20,
		TotalPrice: 13000,
		Status:     model.OrderStatusPending,
	}
}

func pendingTxn() *model.Transaction {
	return &model.Transaction{
		ID:      7,
		OrderID: 1,
		Amount:  13000,
		Status:  model.TransactionStatusPending,
	}
}

func TestRecordPayment(t *testing.T) {
	env := newPaymentEnv(pendingOrder(), pendingTxn())
	method := model.PaymentMethodGCash

	txn, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 13000, PaymentMethod: &method})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
	require.NotNil(t, txn.PaymentMethod)
	assert.Equal(t, model.PaymentMethodGCash, *txn.PaymentMethod)
	assert.NotNil(t, env.txns.byOrder[1].PaidAt)

	assert.Equal(t, 1, env.advancer.calls)
	assert.Equal(t, model.OrderStatusConfirmed, env.advancer.target)
	assert.Equal(t, 1, env.notifier.payments)
}

func TestRecordPayment_Replay(t *testing.T) {
	txn := pendingTxn()
	txn.Status = model.TransactionStatusCompleted
	env := newPaymentEnv(pendingOrder(), txn)

	got, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 13000})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionStatusCompleted, got.Status)
	assert.Equal(t, 0, env.advancer.calls, "replay must not advance the order again")
	assert.Equal(t, 0, env.notifier.payments)
}

func TestRecordPayment_AmountExceedsTotal(t *testing.T) {
	env := newPaymentEnv(pendingOrder(), pendingTxn())

	_, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 99999})
	assert.ErrorIs(t, err, utils.ErrAmountExceedsTotal)
	assert.Equal(t, model.TransactionStatusPending, env.txns.byOrder[1].Status)
}

func TestRecordPayment_AmountMismatch(t *testing.T) {
	env := newPaymentEnv(pendingOrder(), pendingTxn())

	_, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 100})
	assert.ErrorIs(t, err, utils.ErrAmountExceedsTotal,
		"mismatch shares the amount error code")
	assert.Equal(t, model.TransactionStatusPending, env.txns.byOrder[1].Status)
}

func TestRecordPayment_ClosedLedger(t *testing.T) {
	txn := pendingTxn()
	txn.Status = model.TransactionStatusFailed
	env := newPaymentEnv(pendingOrder(), txn)

	_, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 13000})
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)
}

func TestRecordPayment_ConfirmFailureDoesNotFail(t *testing.T) {
	env := newPaymentEnv(pendingOrder(), pendingTxn())
	env.advancer.err = utils.ErrIllegalTransition

	txn, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 13000})
	require.NoError(t, err, "payment stands even when confirmation cannot proceed")
	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, 1, env.notifier.payments)
}

func TestRecordPayment_NoLedgerEntry(t *testing.T) {
	env := newPaymentEnv(pendingOrder(), nil)

	_, err := env.svc.RecordPayment(context.Background(), 1, 10,
		&RecordPaymentRequest{Amount: 13000})
	assert.ErrorIs(t, err, utils.ErrTransactionNotFound)
}

func TestMarkFailed(t *testing.T) {
	env := newPaymentEnv(pendingOrder(), pendingTxn())

	txn, err := env.svc.MarkFailed(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusFailed, txn.Status)

	// Failing twice is a no-op.
	again, err := env.svc.MarkFailed(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusFailed, again.Status)
}

func TestMarkFailed_Completed(t *testing.T) {
	txn := pendingTxn()
	txn.Status = model.TransactionStatusCompleted
	env := newPaymentEnv(pendingOrder(), txn)

	_, err := env.svc.MarkFailed(context.Background(), 1, 20)
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)
}
