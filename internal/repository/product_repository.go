package repository

import (
	"context"

	"github.com/rs-labo46/ecshop/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	// stockは更新しない（在庫はInventoryRepository経由）
	Update(ctx context.Context, p model.Product) error

	Count(ctx context.Context) (int64, error)
	// stock < threshold の商品を在庫の少ない順に
	ListLowStock(ctx context.Context, threshold int64, limit int) ([]model.Product, error)
}
