package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm2go/internal/config"
	"farm2go/internal/model"
	"farm2go/pkg/purchasecode"
	"farm2go/pkg/utils"
)

type fakeOrderRepo struct {
	orders       map[uint64]*model.Order
	nextID       uint64
	createErr    error
	rejectStatus map[string]bool // statuses the store refuses to persist
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uint64]*model.Order), rejectStatus: make(map[string]bool)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, utils.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetByPurchaseCode(ctx context.Context, code string) (*model.Order, error) {
	for _, o := range f.orders {
		if o.PurchaseCode == code {
			return o, nil
		}
	}
	return nil, utils.ErrOrderNotFound
}

func (f *fakeOrderRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := f.GetByPurchaseCode(ctx, code)
	return err == nil, nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	o, ok := f.orders[id]
	if !ok {
		return utils.ErrOrderNotFound
	}
	if f.rejectStatus[status] {
		return utils.WrapError(errors.New("check constraint violated"),
			utils.CodeConstraintViolation, "store rejected status value")
	}
	o.Status = status
	return nil
}

func (f *fakeOrderRepo) UpdateStatusAndNotes(ctx context.Context, id uint64, status string, notes *string) error {
	if err := f.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	f.orders[id].Notes = notes
	return nil
}

func (f *fakeOrderRepo) UpdateNotes(ctx context.Context, id uint64, notes *string) error {
	o, ok := f.orders[id]
	if !ok {
		return utils.ErrOrderNotFound
	}
	o.Notes = notes
	return nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id uint64) error {
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) ListBuyerOrders(ctx context.Context, buyerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) ListFarmerOrders(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

type fakeProductRepo struct {
	products map[uint64]*model.Product
	released int // total quantity returned through ReleaseStock
}

func newFakeProductRepo(products ...*model.Product) *fakeProductRepo {
	m := make(map[uint64]*model.Product)
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeProductRepo{products: m}
}

func (f *fakeProductRepo) Create(ctx context.Context, p *model.Product) error { return nil }

func (f *fakeProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) Update(ctx context.Context, p *model.Product) error { return nil }

func (f *fakeProductRepo) ReserveStock(ctx context.Context, id uint64, quantity int) error {
	p, ok := f.products[id]
	if !ok || p.QuantityAvailable < quantity {
		return utils.ErrInsufficientStock
	}
	p.QuantityAvailable -= quantity
	return nil
}

func (f *fakeProductRepo) ReleaseStock(ctx context.Context, id uint64, quantity int) error {
	if p, ok := f.products[id]; ok {
		p.QuantityAvailable += quantity
	}
	f.released += quantity
	return nil
}

func (f *fakeProductRepo) UpdateApprovalStatus(ctx context.Context, id uint64, status string) error {
	return nil
}

func (f *fakeProductRepo) List(ctx context.Context, page, pageSize int, approvalStatus string) ([]*model.Product, int64, error) {
	return nil, 0, nil
}

func (f *fakeProductRepo) ListByFarmer(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Product, int64, error) {
	return nil, 0, nil
}

func (f *fakeProductRepo) ListLowStock(ctx context.Context, farmerID uint64) ([]*model.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) Delete(ctx context.Context, id uint64) error { return nil }

type fakeTransactionRepo struct {
	byOrder   map[uint64]*model.Transaction
	nextID    uint64
	createErr error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{byOrder: make(map[uint64]*model.Transaction)}
}

func (f *fakeTransactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	txn.ID = f.nextID
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

func (f *fakeTransactionRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	for _, t := range f.byOrder {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return utils.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.Transaction, int64, error) {
	return nil, 0, nil
}

type fakeNotifier struct {
	created       int
	statusChanged int
	cancelReq     int
	lowStock      int
	payments      int
}

func (f *fakeNotifier) NotifyOrderCreated(ctx context.Context, order *model.Order) error {
	f.created++
	return nil
}

func (f *fakeNotifier) NotifyOrderStatusChanged(ctx context.Context, order *model.Order, actorID uint64) error {
	f.statusChanged++
	return nil
}

func (f *fakeNotifier) NotifyCancellationRequested(ctx context.Context, order *model.Order) error {
	f.cancelReq++
	return nil
}

func (f *fakeNotifier) NotifyPaymentReceived(ctx context.Context, order *model.Order, txn *model.Transaction, actorID uint64) error {
	f.payments++
	return nil
}

func (f *fakeNotifier) NotifyLowStock(ctx context.Context, product *model.Product) error {
	f.lowStock++
	return nil
}

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

type testEnv struct {
	svc      OrderService
	orders   *fakeOrderRepo
	products *fakeProductRepo
	txns     *fakeTransactionRepo
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T, products ...*model.Product) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := &testEnv{
		orders:   newFakeOrderRepo(),
		products: newFakeProductRepo(products...),
		txns:     newFakeTransactionRepo(),
		notifier: &fakeNotifier{},
	}

	cfg := config.OrdersConfig{
		LockTTL:       time.Second,
		LockRetries:   3,
		LockRetryWait: time.Millisecond,
		CodeCapacity:  1000,
	}
	env.svc = NewOrderService(cfg, env.orders, env.products, env.txns,
		env.notifier, purchasecode.NewGenerator(1000), client)
	return env
}

func approvedProduct() *model.Product {
	return &model.Product{
		ID:                3,
		FarmerID:          20,
		Name:              "Red Rice",
		Unit:              "kg",
		Price:             6500,
		QuantityAvailable: 10,
		LowStockThreshold: 2,
		ApprovalStatus:    model.ProductStatusApproved,
	}
}

func placeRequest() *PlaceOrderRequest {
	return &PlaceOrderRequest{
		ProductID:       3,
		Quantity:        2,
		DeliveryAddress: "Purok 4, Barangay San Isidro",
	}
}

func TestPlaceOrder(t *testing.T) {
	env := newTestEnv(t, approvedProduct())

	order, err := env.svc.PlaceOrder(context.Background(), 10, placeRequest())
	require.NoError(t, err)

	assert.True(t, purchasecode.Valid(order.PurchaseCode), "code %s", order.PurchaseCode)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, int64(13000), order.TotalPrice)
	assert.Equal(t, uint64(20), order.FarmerID)

	assert.Equal(t, 8, env.products.products[3].QuantityAvailable)

	txn, err := env.txns.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusPending, txn.Status)
	assert.Equal(t, order.TotalPrice, txn.Amount)

	assert.Equal(t, 1, env.notifier.created)
	assert.Equal(t, 0, env.notifier.lowStock)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	env := newTestEnv(t, approvedProduct())

	req := placeRequest()
	req.Quantity = 11

	_, err := env.svc.PlaceOrder(context.Background(), 10, req)
	assert.ErrorIs(t, err, utils.ErrInsufficientStock)
	assert.Empty(t, env.orders.orders)
	assert.Equal(t, 10, env.products.products[3].QuantityAvailable)
}

func TestPlaceOrder_NotApproved(t *testing.T) {
	p := approvedProduct()
	p.ApprovalStatus = model.ProductStatusPending
	env := newTestEnv(t, p)

	_, err := env.svc.PlaceOrder(context.Background(), 10, placeRequest())
	assert.ErrorIs(t, err, utils.ErrProductNotApproved)
}

func TestPlaceOrder_CreateFails_RestoresStock(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	env.orders.createErr = errors.New("db down")

	_, err := env.svc.PlaceOrder(context.Background(), 10, placeRequest())
	assert.Error(t, err)
	assert.Equal(t, 10, env.products.products[3].QuantityAvailable, "reservation must be compensated")
}

func TestPlaceOrder_LedgerFails_CompensatesEverything(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	env.txns.createErr = errors.New("db down")

	_, err := env.svc.PlaceOrder(context.Background(), 10, placeRequest())
	assert.Error(t, err)
	assert.Empty(t, env.orders.orders, "order row must be removed")
	assert.Equal(t, 10, env.products.products[3].QuantityAvailable)
}

func TestPlaceOrder_LowStockAlert(t *testing.T) {
	p := approvedProduct()
	p.QuantityAvailable = 3
	env := newTestEnv(t, p)

	_, err := env.svc.PlaceOrder(context.Background(), 10, placeRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, env.notifier.lowStock)
}

func TestAdvanceStatus_PaymentGate(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	// Pending payment: confirmation is refused.
	_, err = env.svc.AdvanceStatus(ctx, order.ID, 20, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)

	txn, _ := env.txns.GetByOrderID(ctx, order.ID)
	require.NoError(t, env.txns.UpdateStatus(ctx, txn.ID, model.TransactionStatusCompleted))

	updated, err := env.svc.AdvanceStatus(ctx, order.ID, 20, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, 1, env.notifier.statusChanged)
}

func TestAdvanceStatus_IllegalJump(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	_, err = env.svc.AdvanceStatus(ctx, order.ID, 20, model.OrderStatusReady)
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)

	_, err = env.svc.AdvanceStatus(ctx, order.ID, 20, "banana")
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)
}

func TestCancelOrder_RestoresStockAndClosesLedger(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	require.Equal(t, 8, env.products.products[3].QuantityAvailable)

	cancelled, err := env.svc.CancelOrder(ctx, order.ID, 10, model.RoleBuyer)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, env.products.products[3].QuantityAvailable, "stock restored")

	txn, _ := env.txns.GetByOrderID(ctx, order.ID)
	assert.Equal(t, model.TransactionStatusFailed, txn.Status)
}

func TestCancelOrder_TerminalRefused(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	env.orders.orders[order.ID].Status = model.OrderStatusDelivered

	_, err = env.svc.CancelOrder(ctx, order.ID, 10, model.RoleBuyer)
	assert.ErrorIs(t, err, utils.ErrOrderNotCancellable)
}

func TestCancelOrder_HiddenFromStrangers(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	_, err = env.svc.CancelOrder(ctx, order.ID, 99, model.RoleBuyer)
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
	assert.Equal(t, 8, env.products.products[3].QuantityAvailable, "stock untouched")
}

func TestCancelOrder_BuyerOnlyBeforeFulfillment(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	env.orders.orders[order.ID].Status = model.OrderStatusConfirmed

	// The buyer missed their window once fulfillment started.
	_, err = env.svc.CancelOrder(ctx, order.ID, 10, model.RoleBuyer)
	assert.ErrorIs(t, err, utils.ErrOrderNotCancellable)

	// The farmer can still back the order out.
	cancelled, err := env.svc.CancelOrder(ctx, order.ID, 20, model.RoleFarmer)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, env.products.products[3].QuantityAvailable)
}

func TestRequestCancellation(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	updated, err := env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancellationRequested, updated.Status)
	assert.Equal(t, 1, env.notifier.cancelReq)
}

func TestAdvanceStatus_GateHoldsAfterCancellationRequest(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	_, err = env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	// Unpaid: declining the request must not smuggle the order into
	// fulfillment through the cancellation_requested resume edges.
	_, err = env.svc.AdvanceStatus(ctx, order.ID, 20, model.OrderStatusProcessing)
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)

	_, err = env.svc.AdvanceStatus(ctx, order.ID, 20, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)

	current, err := env.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancellationRequested, current.EffectiveStatus())
}

func TestAdvanceStatus_CancelledTargetRefused(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	_, err = env.svc.AdvanceStatus(ctx, order.ID, 20, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, utils.ErrIllegalTransition)
	assert.Equal(t, 8, env.products.products[3].QuantityAvailable, "no side effects")
}

func TestRequestCancellation_WrongBuyer(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	_, err = env.svc.RequestCancellation(ctx, order.ID, 99)
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}

func TestRequestCancellation_RepeatDoesNotRenotify(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	_, err = env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	updated, err := env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancellationRequested, updated.EffectiveStatus())
	assert.Equal(t, 1, env.notifier.cancelReq, "idempotent repeat must not fan out again")
}

func TestRequestCancellation_SentinelFallback(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	env.orders.rejectStatus[model.OrderStatusCancellationRequested] = true
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	updated, err := env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	// Physical status stays pending, the sentinel canonicalizes it.
	assert.Equal(t, model.OrderStatusPending, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Contains(t, *updated.Notes, model.CancellationRequestedSentinel)
	assert.Equal(t, model.OrderStatusCancellationRequested, updated.EffectiveStatus())
	assert.True(t, updated.CancellationRequested())
}

func TestResolveCancellation_Approve(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	_, err = env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	resolved, err := env.svc.ResolveCancellation(ctx, order.ID, 20, model.RoleFarmer, true, "")
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancelled, resolved.Status)
	assert.Equal(t, 10, env.products.products[3].QuantityAvailable)
}

func TestResolveCancellation_BuyerMayNotResolve(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	_, err = env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	_, err = env.svc.ResolveCancellation(ctx, order.ID, 10, model.RoleBuyer, true, "")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)

	// Admins resolve orders they are not a party to.
	resolved, err := env.svc.ResolveCancellation(ctx, order.ID, 50, model.RoleAdmin, true, "")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, resolved.Status)
}

func TestResolveCancellation_DeclineSentinel(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	env.orders.rejectStatus[model.OrderStatusCancellationRequested] = true
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)
	_, err = env.svc.RequestCancellation(ctx, order.ID, 10)
	require.NoError(t, err)

	resolved, err := env.svc.ResolveCancellation(ctx, order.ID, 20, model.RoleFarmer, false, "")
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, resolved.Status)
	assert.Nil(t, resolved.Notes, "sentinel stripped on decline")
	assert.False(t, resolved.CancellationRequested())
}

func TestBuildQRPayload(t *testing.T) {
	env := newTestEnv(t, approvedProduct())
	ctx := context.Background()

	order, err := env.svc.PlaceOrder(ctx, 10, placeRequest())
	require.NoError(t, err)

	farm := "Tahanan Farms"
	order.Farmer = &model.Profile{ID: 20, Name: "Mang Tomas", FarmName: &farm}

	payload, err := env.svc.BuildQRPayload(order)
	require.NoError(t, err)

	assert.Equal(t, purchasecode.QRPayloadType, payload.Type)
	assert.Equal(t, order.PurchaseCode, payload.Code)
	assert.Equal(t, "Tahanan Farms", payload.Farm)
	assert.Equal(t, "Red Rice", payload.Product)
	assert.InDelta(t, 130.0, payload.Amount, 0.001)
	assert.True(t, payload.Verified)
}

func TestGetOrderByCode_Malformed(t *testing.T) {
	env := newTestEnv(t, approvedProduct())

	_, err := env.svc.GetOrderByCode(context.Background(), "not-a-code")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}
