package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/infra/memory"
	repo "github.com/rs-labo46/ecshop/internal/repository"
	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func placedOrder(t *testing.T, s *memory.Store) model.Order {
	t.Helper()
	ps := seedProducts(t, s, product("A", "10", 5))
	addToCart(t, s, client1, ps[0].ID, 2)

	o, err := newOrderUC(s).PlaceOrder(context.Background(), client1, placeInput("tarjeta"))
	require.NoError(t, err)
	return o
}

func TestUpdateStatus_ChangesStatusAndWritesAuditLog(t *testing.T) {
	s := memory.NewStore()
	o := placedOrder(t, s)

	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev usecase.OrderEvent) bool {
		return ev.Type == usecase.EventOrderStatusChanged &&
			ev.OrderID == o.ID &&
			ev.PrevStatus == model.OrderStatusPending &&
			ev.Status == model.OrderStatusShipped
	})).Return(nil).Once()
	cache := &statsCacheMock{}
	cache.On("Invalidate", mock.Anything).Return(nil).Once()

	uc := usecase.NewAdminOrderUsecase(s, pub, cache, nil, nil)
	got, err := uc.UpdateStatus(context.Background(), admin, o.ID, "enviado")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, got.Status)

	// 明細・合計はそのまま
	assert.True(t, o.Total.Equal(got.Total))
	assert.Len(t, got.Items, len(o.Items))

	logs, err := uc.ListAuditLogs(context.Background(), admin, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
	assert.Equal(t, o.ID, logs[0].ResourceID)
	assert.JSONEq(t, `{"status":"pendiente"}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"status":"enviado"}`, logs[0].AfterJSON)

	pub.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestUpdateStatus_AnyToAnyWithoutStockEffects(t *testing.T) {
	s := memory.NewStore()
	o := placedOrder(t, s)
	stock := stockOf(t, s, o.Items[0].ProductID)
	uc := usecase.NewAdminOrderUsecase(s, nil, nil, nil, nil)

	for _, st := range []string{"cancelado", "pendiente", "entregado", "pagado"} {
		got, err := uc.UpdateStatus(context.Background(), admin, o.ID, st)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatus(st), got.Status)
	}
	assert.Equal(t, stock, stockOf(t, s, o.Items[0].ProductID))
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	s := memory.NewStore()
	o := placedOrder(t, s)

	pub := &publisherMock{}
	uc := usecase.NewAdminOrderUsecase(s, pub, nil, nil, nil)

	got, err := uc.UpdateStatus(context.Background(), admin, o.ID, "pendiente")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)

	logs, err := uc.ListAuditLogs(context.Background(), admin, repo.AuditLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestUpdateStatus_Rejects(t *testing.T) {
	s := memory.NewStore()
	o := placedOrder(t, s)
	uc := usecase.NewAdminOrderUsecase(s, nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		status string
		id     int64
		want   error
		code   int
	}{
		{name: "english value", status: "shipped", id: o.ID, want: usecase.ErrInvalidStatus, code: http.StatusBadRequest},
		{name: "empty", status: "", id: o.ID, want: usecase.ErrInvalidStatus, code: http.StatusBadRequest},
		{name: "unknown order", status: "pagado", id: o.ID + 100, want: usecase.ErrNotFound, code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.UpdateStatus(ctx, admin, tt.id, tt.status)
			assert.ErrorIs(t, err, tt.want)
			requireStatus(t, err, tt.code)
		})
	}

	_, err := uc.UpdateStatus(ctx, client1, o.ID, "pagado")
	assert.ErrorIs(t, err, usecase.ErrForbidden)

	_, err = uc.UpdateStatus(ctx, anon, o.ID, "pagado")
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)

	got, err := newOrderUC(s).GetOrder(ctx, client1, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
}

func TestUpdateStatus_PublishFailureDoesNotFail(t *testing.T) {
	s := memory.NewStore()
	o := placedOrder(t, s)

	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("buffer full")).Once()
	uc := usecase.NewAdminOrderUsecase(s, pub, nil, nil, nil)

	got, err := uc.UpdateStatus(context.Background(), admin, o.ID, "pagado")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
	pub.AssertExpectations(t)
}

func TestListAuditLogs_AdminOnly(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewAdminOrderUsecase(s, nil, nil, nil, nil)

	_, err := uc.ListAuditLogs(context.Background(), client1, repo.AuditLogFilter{})
	assert.ErrorIs(t, err, usecase.ErrForbidden)
}
