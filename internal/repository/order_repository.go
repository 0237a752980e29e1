package repository

import (
	"context"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status *model.OrderStatus
	UserID *int64
}

// ステータスごとの件数と合計
type StatusSummary struct {
	Status model.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
	Total  decimal.Decimal   `json:"total"`
}

// 商品ごとの販売数（全ステータス）
type ProductSales struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitsSold int64           `json:"unitsSold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type OrderRepository interface {
	// IDと明細IDを埋める
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	Count(ctx context.Context) (int64, error)
	SummaryByStatus(ctx context.Context) ([]StatusSummary, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
}
