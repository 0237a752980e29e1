package usecase

import (
	"context"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	recentOrdersLimit = 5
	lowStockThreshold = 10
	lowStockLimit     = 5
	topProductsLimit  = 5
)

type StatsCounts struct {
	Products   int64 `json:"products"`
	Categories int64 `json:"categories"`
	Orders     int64 `json:"orders"`
}

// 管理画面の集計
type AdminStats struct {
	Counts           StatsCounts          `json:"counts"`
	RecentOrders     []model.Order        `json:"recentOrders"`
	LowStockProducts []model.Product      `json:"lowStockProducts"`
	OrdersByStatus   []repo.StatusSummary `json:"ordersByStatus"`
	TotalSales       decimal.Decimal      `json:"totalSales"`
	TopProducts      []repo.ProductSales  `json:"topProducts"`
	GeneratedAt      time.Time            `json:"generatedAt"`
}

type StatsUsecase struct {
	tx    repo.TransactionManager
	cache StatsCache
	clock Clock
}

func NewStatsUsecase(tx repo.TransactionManager, cache StatsCache, clock Clock) *StatsUsecase {
	if cache == nil {
		cache = nopStatsCache{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &StatsUsecase{tx: tx, cache: cache, clock: clock}
}

// Get はキャッシュがあればそれを返す。キャッシュの失敗は集計で埋める。
// 読めなかったときは世代が分からないので書き戻さない。
func (u *StatsUsecase) Get(ctx context.Context, actor policy.Actor) (AdminStats, error) {
	if !actor.Authenticated() {
		return AdminStats{}, errUnauthorized()
	}
	if !policy.CanViewStats(actor) {
		return AdminStats{}, errForbidden()
	}

	cached, gen, hit, cacheErr := u.cache.Get(ctx)
	if cacheErr != nil {
		zap.L().Warn("read stats cache failed", zap.Error(cacheErr))
	} else if hit {
		return cached, nil
	}

	stats, err := u.compute(ctx)
	if err != nil {
		return AdminStats{}, err
	}

	if cacheErr == nil {
		if err := u.cache.Set(ctx, gen, stats); err != nil {
			zap.L().Warn("write stats cache failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (u *StatsUsecase) compute(ctx context.Context) (AdminStats, error) {
	var out AdminStats
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if out.Counts.Products, err = r.Products().Count(ctx); err != nil {
			return errDB(err)
		}
		if out.Counts.Categories, err = r.Categories().Count(ctx); err != nil {
			return errDB(err)
		}
		if out.Counts.Orders, err = r.Orders().Count(ctx); err != nil {
			return errDB(err)
		}

		if out.RecentOrders, _, err = r.Orders().ListAdmin(ctx, repo.AdminOrderListFilter{Page: 1, Limit: recentOrdersLimit}); err != nil {
			return errDB(err)
		}
		if out.LowStockProducts, err = r.Products().ListLowStock(ctx, lowStockThreshold, lowStockLimit); err != nil {
			return errDB(err)
		}
		if out.OrdersByStatus, err = r.Orders().SummaryByStatus(ctx); err != nil {
			return errDB(err)
		}
		if out.TopProducts, err = r.Orders().TopProducts(ctx, topProductsLimit); err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return AdminStats{}, err
	}

	// 売上合計は全ステータスの合計
	out.TotalSales = decimal.Zero
	for _, s := range out.OrdersByStatus {
		out.TotalSales = out.TotalSales.Add(s.Total)
	}
	out.GeneratedAt = u.clock.Now()
	return out, nil
}
