package repository

import (
	"context"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/shopspring/decimal"
)

// ユーザーごとに1つのカート。変更はすぐ保存され、totalも毎回計算し直す。
type CartRepository interface {
	// 明細込みで取得。無ければErrNotFound。
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)

	// カートが無ければ作る。同じ商品があれば数量と価格を置き換える（加算しない）。
	UpsertItem(ctx context.Context, userID int64, productID int64, qty int64, price decimal.Decimal) (model.Cart, error)

	// 明細削除。無い商品やカートでもエラーにしない。
	RemoveItem(ctx context.Context, userID int64, productID int64) (model.Cart, error)

	// カートごと削除。無ければErrNotFound。
	DeleteByUserID(ctx context.Context, userID int64) error
}
