package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"market/internal/domain/event"
	"market/internal/domain/model"
	repo "market/internal/repository"
	"market/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders    repo.OrderRepository
	carts     repo.CartRepository
	inventory repo.InventoryRepository
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository        { return r.orders }
func (r *TxReposMock) Carts() repo.CartRepository          { return r.carts }
func (r *TxReposMock) Inventory() repo.InventoryRepository { return r.inventory }
func (r *TxReposMock) Products() repo.ProductRepository    { return r.products }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository  { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	panic("not used in AdminOrderUsecase tests")
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindBySessionID(ctx context.Context, userID int64, sessionID string) (model.Order, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in AdminOrderUsecase tests")
}

func (m *OrderRepoMock) TransitionStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type EventPublisherMock struct{ mock.Mock }

func (m *EventPublisherMock) Publish(ctx context.Context, env event.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

// =====================
// Helper
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "err=%v is not HTTPError", err) {
		assert.Equal(t, status, he.Status)
	}
}

type adminFixture struct {
	tx     *TxManagerMock
	orders *OrderRepoMock
	audit  *AuditRepoMock
	events *EventPublisherMock
	uc     *usecase.AdminOrderUsecase
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		tx:     new(TxManagerMock),
		orders: new(OrderRepoMock),
		audit:  new(AuditRepoMock),
		events: new(EventPublisherMock),
	}
	f.tx.Repos = &TxReposMock{orders: f.orders, auditLogs: f.audit}
	f.uc = usecase.NewAdminOrderUsecase(f.tx, f.events, nil, "test")
	return f
}

// =====================
// List tests
// =====================

func TestAdminOrderUsecase_List_InvalidPage(t *testing.T) {
	f := newAdminFixture()

	out, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 0, Limit: 20})
	assert.Empty(t, out.Orders)
	assertErrContains(t, err, "invalid page")
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_List_InvalidLimit(t *testing.T) {
	f := newAdminFixture()

	_, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 0})
	assertErrContains(t, err, "invalid limit")

	_, err = f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 101})
	assertErrContains(t, err, "invalid limit")
}

func TestAdminOrderUsecase_List_InvalidStatus(t *testing.T) {
	f := newAdminFixture()

	_, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "SHIPPED"})
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_List_Success(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	filter := repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "PLACED", Code: "EC-1"}
	orders := []model.Order{
		{ID: 11, OrderCode: "EC-12345678-11", Status: model.OrderStatusPlaced, Total: 207,
			Lines: []model.OrderLine{{ProductID: 1, ProductName: "TERRA.BOOTS", Quantity: 1, UnitPrice: 195}}},
		{ID: 10, OrderCode: "EC-12345670-42", Status: model.OrderStatusPlaced, Total: 97},
	}
	f.orders.On("ListAdmin", mock.Anything, filter).Return(orders, int64(2), nil)

	out, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 20, Status: "PLACED", Code: "  EC-1 "})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	if assert.Len(t, out.Orders, 2) {
		assert.Equal(t, "EC-12345678-11", out.Orders[0].OrderCode)
		assert.Equal(t, "TERRA.BOOTS", out.Orders[0].Lines[0].ProductName)
		assert.Empty(t, out.Orders[1].Lines)
	}

	f.tx.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

func TestAdminOrderUsecase_List_RepoError(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("ListAdmin", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("db down"))

	_, err := f.uc.List(context.Background(), repo.AdminOrderListFilter{Page: 1, Limit: 20})
	assertStatus(t, err, 500)
}

// =====================
// UpdateStatus tests
// =====================

func TestAdminOrderUsecase_UpdateStatus_PlacedToFulfilled(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	o := model.Order{ID: 7, OrderCode: "EC-00000007-10", Status: model.OrderStatusPlaced}
	f.orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(o, nil)
	f.orders.On("TransitionStatus", mock.Anything, int64(7), model.OrderStatusPlaced, model.OrderStatusFulfilled).Return(true, nil)
	f.audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 99 &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == 7 &&
			l.BeforeJSON == `{"status":"PLACED"}` &&
			l.AfterJSON == `{"status":"FULFILLED"}`
	})).Return(nil)
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(env event.Envelope) bool {
		return env.EventType == event.TopicOrderStatusChanged && env.OrderID == 7 && env.Producer == "test"
	})).Return(nil)

	out, err := f.uc.UpdateStatus(context.Background(), 99, 7, usecase.AdminUpdateOrderStatusInput{Status: "fulfilled"})
	assert.NoError(t, err)
	assert.Equal(t, "FULFILLED", out.Status)

	f.orders.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdateStatus_PendingToCancelled(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	o := model.Order{ID: 8, Status: model.OrderStatusPendingPayment}
	f.orders.On("FindByIDForUpdate", mock.Anything, int64(8)).Return(o, nil)
	f.orders.On("TransitionStatus", mock.Anything, int64(8), model.OrderStatusPendingPayment, model.OrderStatusCancelled).Return(true, nil)
	f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)
	//通知の失敗は結果に影響しない
	f.events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	out, err := f.uc.UpdateStatus(context.Background(), 99, 8, usecase.AdminUpdateOrderStatusInput{Status: "CANCELLED"})
	assert.NoError(t, err)
	assert.Equal(t, "CANCELLED", out.Status)
}

func TestAdminOrderUsecase_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	o := model.Order{ID: 7, Status: model.OrderStatusFulfilled}
	f.orders.On("FindByIDForUpdate", mock.Anything, int64(7)).Return(o, nil)

	out, err := f.uc.UpdateStatus(context.Background(), 99, 7, usecase.AdminUpdateOrderStatusInput{Status: "FULFILLED"})
	assert.NoError(t, err)
	assert.Equal(t, "FULFILLED", out.Status)

	f.orders.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_RejectedTransitions(t *testing.T) {
	cases := []struct {
		name   string
		from   model.OrderStatus
		target string
	}{
		{"placed by admin", model.OrderStatusPendingPayment, "PLACED"},
		{"fulfil before payment", model.OrderStatusPendingPayment, "FULFILLED"},
		{"cancel placed", model.OrderStatusPlaced, "CANCELLED"},
		{"revive cancelled", model.OrderStatusCancelled, "PENDING_PAYMENT"},
		{"back from fulfilled", model.OrderStatusFulfilled, "PLACED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAdminFixture()
			f.tx.On("WithinTx", mock.Anything).Return(nil)
			f.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{ID: 5, Status: tc.from}, nil)

			_, err := f.uc.UpdateStatus(context.Background(), 99, 5, usecase.AdminUpdateOrderStatusInput{Status: tc.target})
			assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
			assertStatus(t, err, 409)

			f.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

// 条件付きUPDATEで負けた（ロック後に別経路で変わった）場合も409
func TestAdminOrderUsecase_UpdateStatus_LostRace(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{ID: 5, Status: model.OrderStatusPendingPayment}, nil)
	f.orders.On("TransitionStatus", mock.Anything, int64(5), model.OrderStatusPendingPayment, model.OrderStatusCancelled).Return(false, nil)

	_, err := f.uc.UpdateStatus(context.Background(), 99, 5, usecase.AdminUpdateOrderStatusInput{Status: "CANCELLED"})
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_InputErrors(t *testing.T) {
	f := newAdminFixture()

	_, err := f.uc.UpdateStatus(context.Background(), 0, 5, usecase.AdminUpdateOrderStatusInput{Status: "CANCELLED"})
	assertStatus(t, err, 401)

	_, err = f.uc.UpdateStatus(context.Background(), 99, 0, usecase.AdminUpdateOrderStatusInput{Status: "CANCELLED"})
	assertErrContains(t, err, "invalid id")

	_, err = f.uc.UpdateStatus(context.Background(), 99, 5, usecase.AdminUpdateOrderStatusInput{Status: "SHIPPED"})
	assertErrContains(t, err, "invalid status")

	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestAdminOrderUsecase_UpdateStatus_NotFound(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByIDForUpdate", mock.Anything, int64(404)).Return(model.Order{}, repo.ErrNotFound)

	_, err := f.uc.UpdateStatus(context.Background(), 99, 404, usecase.AdminUpdateOrderStatusInput{Status: "CANCELLED"})
	assertStatus(t, err, 404)
}

// =====================
// ListAuditLogs / ParseDateTimeRFC3339
// =====================

func TestAdminOrderUsecase_ListAuditLogs_DefaultLimit(t *testing.T) {
	f := newAdminFixture()
	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.audit.On("List", mock.Anything, mock.MatchedBy(func(fl repo.AuditLogFilter) bool {
		return fl.Limit == 50 && fl.Offset == 0
	})).Return([]model.AuditLog{{ID: 1}}, nil)

	logs, err := f.uc.ListAuditLogs(context.Background(), repo.AuditLogFilter{})
	assert.NoError(t, err)
	assert.Len(t, logs, 1)
	f.audit.AssertExpectations(t)
}

func TestAdminOrderUsecase_ListAuditLogs_InvalidLimit(t *testing.T) {
	f := newAdminFixture()

	_, err := f.uc.ListAuditLogs(context.Background(), repo.AuditLogFilter{Limit: 500})
	assertStatus(t, err, 400)

	_, err = f.uc.ListAuditLogs(context.Background(), repo.AuditLogFilter{Limit: 10, Offset: -1})
	assertStatus(t, err, 400)
}

func TestParseDateTimeRFC3339(t *testing.T) {
	got, err := usecase.ParseDateTimeRFC3339("")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = usecase.ParseDateTimeRFC3339("2026-01-02T03:04:05Z")
	assert.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.True(t, got.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	}

	_, err = usecase.ParseDateTimeRFC3339("2026-01-02")
	assertStatus(t, err, 400)
}
