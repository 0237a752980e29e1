package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	"github.com/rs-labo46/ecshop/internal/infra/memory"
	repo "github.com/rs-labo46/ecshop/internal/repository"
	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	client1 = policy.NewActor(1, model.RoleClient)
	client2 = policy.NewActor(2, model.RoleClient)
	admin   = policy.NewActor(99, model.RoleAdmin)
	anon    = policy.Actor{}
)

func shippingAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Street:  "Calle Mayor 1",
		City:    "Madrid",
		State:   "Madrid",
		ZipCode: "28013",
		Country: "ES",
	}
}

// カテゴリ1つと商品を作る
func seedProducts(t *testing.T, s *memory.Store, specs ...model.Product) []model.Product {
	t.Helper()
	ctx := context.Background()

	out := make([]model.Product, 0, len(specs))
	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().Create(ctx, model.Category{Name: "general", CreatedBy: admin.UserID})
		if err != nil {
			return err
		}
		for _, p := range specs {
			p.CategoryID = c.ID
			p.CreatedBy = admin.UserID
			created, err := r.Products().Create(ctx, p)
			if err != nil {
				return err
			}
			out = append(out, created)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func product(name string, price string, stock int64) model.Product {
	return model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func stockOf(t *testing.T, s *memory.Store, productID int64) int64 {
	t.Helper()
	var stock int64
	err := s.WithinTx(context.Background(), func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(context.Background(), productID)
		stock = p.Stock
		return err
	})
	require.NoError(t, err)
	return stock
}

func addToCart(t *testing.T, s *memory.Store, actor policy.Actor, productID int64, qty int64) {
	t.Helper()
	_, err := usecase.NewCartUsecase(s).UpsertItem(context.Background(), actor, usecase.UpsertCartItemInput{
		ProductID: productID,
		Quantity:  qty,
	})
	require.NoError(t, err)
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected *HTTPError, got %v", err)
	require.Equal(t, status, he.Status)
}

// =====================
// mocks
// =====================

type publisherMock struct{ mock.Mock }

func (m *publisherMock) Publish(ctx context.Context, ev usecase.OrderEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type statsCacheMock struct{ mock.Mock }

func (m *statsCacheMock) Get(ctx context.Context) (usecase.AdminStats, int64, bool, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(usecase.AdminStats)
	return s, args.Get(1).(int64), args.Bool(2), args.Error(3)
}

func (m *statsCacheMock) Set(ctx context.Context, gen int64, stats usecase.AdminStats) error {
	args := m.Called(ctx, gen, stats)
	return args.Error(0)
}

func (m *statsCacheMock) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// n個の呼び出しがそろうまでトランザクションを始めさせないTxManager
type gateTx struct {
	inner repo.TransactionManager
	ready sync.WaitGroup
}

func newGateTx(inner repo.TransactionManager, n int) *gateTx {
	g := &gateTx{inner: inner}
	g.ready.Add(n)
	return g
}

func (g *gateTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	g.ready.Done()
	g.ready.Wait()
	return g.inner.WithinTx(ctx, fn)
}

// カート削除だけ失敗させるTxManager
type failingCartTx struct {
	inner repo.TransactionManager
	err   error
}

func (f *failingCartTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return f.inner.WithinTx(ctx, func(r repo.TxRepos) error {
		return fn(failingCartRepos{TxRepos: r, err: f.err})
	})
}

type failingCartRepos struct {
	repo.TxRepos
	err error
}

func (r failingCartRepos) Carts() repo.CartRepository {
	return failingCarts{CartRepository: r.TxRepos.Carts(), err: r.err}
}

type failingCarts struct {
	repo.CartRepository
	err error
}

func (c failingCarts) DeleteByUserID(context.Context, int64) error {
	return c.err
}
