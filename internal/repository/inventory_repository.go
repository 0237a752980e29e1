package repository

import (
	"context"

	"github.com/rs-labo46/ecshop/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算。足りない・商品が無いときはfalse。
	// 在庫チェックの正はこれ一つ。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 増減履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
