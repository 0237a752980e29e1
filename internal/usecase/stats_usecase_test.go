package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/infra/memory"
	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStats_Compute(t *testing.T) {
	s := memory.NewStore()
	ps := seedProducts(t, s, product("A", "10", 20), product("B", "5", 3))
	uc := newOrderUC(s)
	ctx := context.Background()

	addToCart(t, s, client1, ps[0].ID, 2)
	addToCart(t, s, client1, ps[1].ID, 1)
	o1, err := uc.PlaceOrder(ctx, client1, placeInput("tarjeta"))
	require.NoError(t, err)

	addToCart(t, s, client2, ps[0].ID, 1)
	_, err = uc.PlaceOrder(ctx, client2, placeInput("efectivo"))
	require.NoError(t, err)

	_, err = usecase.NewAdminOrderUsecase(s, nil, nil, nil, nil).UpdateStatus(ctx, admin, o1.ID, "pagado")
	require.NoError(t, err)

	stats, err := usecase.NewStatsUsecase(s, nil, nil).Get(ctx, admin)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Counts.Products)
	assert.Equal(t, int64(1), stats.Counts.Categories)
	assert.Equal(t, int64(2), stats.Counts.Orders)
	assert.Len(t, stats.RecentOrders, 2)
	assert.True(t, decimal.NewFromInt(35).Equal(stats.TotalSales), "total=%s", stats.TotalSales)

	// Bは残り2で在庫少
	require.Len(t, stats.LowStockProducts, 1)
	assert.Equal(t, ps[1].ID, stats.LowStockProducts[0].ID)

	byStatus := map[model.OrderStatus]int64{}
	for _, st := range stats.OrdersByStatus {
		byStatus[st.Status] = st.Count
	}
	assert.Equal(t, int64(1), byStatus[model.OrderStatusPaid])
	assert.Equal(t, int64(1), byStatus[model.OrderStatusPending])

	require.NotEmpty(t, stats.TopProducts)
	assert.Equal(t, ps[0].ID, stats.TopProducts[0].ProductID)
	assert.Equal(t, int64(3), stats.TopProducts[0].UnitsSold)
}

func TestStats_UsesCache(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	cached := usecase.AdminStats{Counts: usecase.StatsCounts{Orders: 42}}
	cache := &statsCacheMock{}
	cache.On("Get", mock.Anything).Return(cached, int64(3), true, nil).Once()

	got, err := usecase.NewStatsUsecase(s, cache, nil).Get(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Counts.Orders)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestStats_MissWritesBackUnderReadGeneration(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	cache := &statsCacheMock{}
	cache.On("Get", mock.Anything).Return(nil, int64(7), false, nil).Once()
	cache.On("Set", mock.Anything, int64(7), mock.Anything).Return(errors.New("redis down")).Once()

	got, err := usecase.NewStatsUsecase(s, cache, nil).Get(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Counts.Orders)
	assert.True(t, got.TotalSales.IsZero())
	cache.AssertExpectations(t)
}

func TestStats_ReadErrorComputesWithoutWriteBack(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	cache := &statsCacheMock{}
	cache.On("Get", mock.Anything).Return(nil, int64(0), false, errors.New("redis down")).Once()

	_, err := usecase.NewStatsUsecase(s, cache, nil).Get(ctx, admin)
	require.NoError(t, err)
	cache.AssertExpectations(t)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestStats_AdminOnly(t *testing.T) {
	s := memory.NewStore()
	_, err := usecase.NewStatsUsecase(s, nil, nil).Get(context.Background(), client1)
	assert.ErrorIs(t, err, usecase.ErrForbidden)

	_, err = usecase.NewStatsUsecase(s, nil, nil).Get(context.Background(), anon)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestStats_CancelledOrdersCountInSalesAndTopProducts(t *testing.T) {
	s := memory.NewStore()
	ps := seedProducts(t, s, product("A", "10", 20))
	ctx := context.Background()

	addToCart(t, s, client1, ps[0].ID, 2)
	o, err := newOrderUC(s).PlaceOrder(ctx, client1, placeInput("tarjeta"))
	require.NoError(t, err)
	_, err = usecase.NewAdminOrderUsecase(s, nil, nil, nil, nil).UpdateStatus(ctx, admin, o.ID, "cancelado")
	require.NoError(t, err)

	stats, err := usecase.NewStatsUsecase(s, nil, nil).Get(ctx, admin)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(20).Equal(stats.TotalSales), "total=%s", stats.TotalSales)
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, int64(2), stats.TopProducts[0].UnitsSold)
	assert.True(t, stats.TotalSales.Equal(stats.TopProducts[0].Revenue))
}
