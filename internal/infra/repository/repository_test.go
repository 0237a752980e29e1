package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs-labo46/ecshop/internal/config"
	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/infra/db"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TEST_DATABASE_URL が無ければskip
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	gdb, err := db.Connect(config.Config{DatabaseURL: dsn})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// テストごとに衝突しないID
func uniqueUserID() int64 {
	return time.Now().UnixNano() % 1_000_000_000
}

func seedGormProduct(t *testing.T, tm *TxManagerGorm, stock int64) model.Product {
	t.Helper()
	ctx := context.Background()

	var p model.Product
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().Create(ctx, model.Category{Name: "cat-" + uuid.NewString()[:8], CreatedBy: 1})
		if err != nil {
			return err
		}
		p, err = r.Products().Create(ctx, model.Product{
			Name:       "p-" + uuid.NewString()[:8],
			Price:      decimal.RequireFromString("10.00"),
			Stock:      stock,
			CategoryID: c.ID,
			CreatedBy:  1,
		})
		return err
	})
	require.NoError(t, err)
	return p
}

func TestGorm_DecreaseStockIfEnough(t *testing.T) {
	gdb := openTestDB(t)
	tm := NewTxManagerGorm(gdb)
	ctx := context.Background()
	p := seedGormProduct(t, tm, 3)

	inv := NewInventoryGormRepository(gdb)
	ok, err := inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// 商品が無いときも在庫不足と同じ扱い
	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID+1_000_000, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := NewProductGormRepository(gdb).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Stock)
}

func TestGorm_WithinTxRollsBack(t *testing.T) {
	gdb := openTestDB(t)
	tm := NewTxManagerGorm(gdb)
	ctx := context.Background()
	p := seedGormProduct(t, tm, 5)
	userID := uniqueUserID()

	boom := errors.New("boom")
	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Carts().UpsertItem(ctx, userID, p.ID, 2, p.Price); err != nil {
			return err
		}
		if _, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, 2); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := NewProductGormRepository(gdb).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)

	_, err = NewCartGormRepository(gdb).FindByUserID(ctx, userID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestGorm_CartReplaceAndOrderRoundTrip(t *testing.T) {
	gdb := openTestDB(t)
	tm := NewTxManagerGorm(gdb)
	ctx := context.Background()
	p := seedGormProduct(t, tm, 5)
	userID := uniqueUserID()

	carts := NewCartGormRepository(gdb)
	_, err := carts.UpsertItem(ctx, userID, p.ID, 1, p.Price)
	require.NoError(t, err)
	cart, err := carts.UpsertItem(ctx, userID, p.ID, 3, p.Price)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(3), cart.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(cart.Total))

	key := uuid.NewString()
	order := model.Order{
		Code:           "ORD-TEST-" + uuid.NewString()[:8],
		UserID:         userID,
		Total:          cart.Total,
		PaymentMethod:  model.PaymentMethodCash,
		Status:         model.OrderStatusPending,
		IdempotencyKey: &key,
		Items: []model.OrderItem{
			{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: 3},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	orders := NewOrderGormRepository(gdb)
	require.NoError(t, orders.Create(ctx, &order))
	require.NotZero(t, order.ID)

	got, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.NewFromInt(30).Equal(got.Total))

	replay, found, err := orders.FindByIdempotencyKey(ctx, userID, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, order.ID, replay.ID)

	require.NoError(t, orders.UpdateStatus(ctx, order.ID, model.OrderStatusPaid))
	assert.ErrorIs(t, orders.UpdateStatus(ctx, 0, model.OrderStatusPaid), repo.ErrNotFound)

	list, total, err := orders.ListByUserID(ctx, userID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.OrderStatusPaid, list[0].Status)

	require.NoError(t, carts.DeleteByUserID(ctx, userID))
	assert.ErrorIs(t, carts.DeleteByUserID(ctx, userID), repo.ErrNotFound)
}

func TestGorm_AdjustmentRowsVisibleOverPgx(t *testing.T) {
	gdb := openTestDB(t)
	tm := NewTxManagerGorm(gdb)
	ctx := context.Background()
	p := seedGormProduct(t, tm, 4)

	require.NoError(t, tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Inventory().SetStock(ctx, p.ID, 9); err != nil {
			return err
		}
		return r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   p.ID,
			ActorUserID: 1,
			Delta:       5,
			Reason:      "recount",
			CreatedAt:   time.Now(),
		})
	}))

	// gormを通さずに確認する
	sqlDB, err := sql.Open("pgx", os.Getenv("TEST_DATABASE_URL"))
	require.NoError(t, err)
	defer sqlDB.Close()

	var stock int64
	require.NoError(t, sqlDB.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, p.ID).Scan(&stock))
	assert.Equal(t, int64(9), stock)

	var delta int64
	require.NoError(t, sqlDB.QueryRowContext(ctx,
		`SELECT delta FROM inventory_adjustments WHERE product_id = $1 ORDER BY id DESC LIMIT 1`, p.ID).Scan(&delta))
	assert.Equal(t, int64(5), delta)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), repo.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), repo.ErrConflict)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "40001"}), repo.ErrConflict)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: "40P01"}), repo.ErrConflict)

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), translate(other))
}
