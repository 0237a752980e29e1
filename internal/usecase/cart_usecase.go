package usecase

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// 変更は1回ごとに確定する（注文のようなまとめたトランザクションは無い）。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

// price は追加時点の価格を返します。
type CartItemOutput struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartOutput struct {
	UserID int64            `json:"userId"`
	Items  []CartItemOutput `json:"items"`
	Total  decimal.Decimal  `json:"total"`
}

type UpsertCartItemInput struct {
	ProductID int64
	Quantity  int64
}

// GetCart はカート取得（無ければ空のカートを返す）。
func (u *CartUsecase) GetCart(ctx context.Context, actor policy.Actor) (CartOutput, error) {
	if !actor.Authenticated() {
		return CartOutput{}, errUnauthorized()
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			cart = model.EmptyCart(actor.UserID)
		} else if err != nil {
			return errDB(err)
		}

		out, err = buildCartOutput(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// UpsertItem は数量を置き換える（同一商品でも加算しない）。
func (u *CartUsecase) UpsertItem(ctx context.Context, actor policy.Actor, in UpsertCartItemInput) (CartOutput, error) {
	if !actor.Authenticated() {
		return CartOutput{}, errUnauthorized()
	}
	if in.ProductID <= 0 {
		return CartOutput{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid productId")
	}
	if in.Quantity < 1 {
		return CartOutput{}, WrapHTTPError(http.StatusBadRequest, ErrInvalidQuantity, "quantity must be at least 1")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusNotFound, ErrProductNotFound, "product not found")
		}
		if err != nil {
			return errDB(err)
		}

		//在庫チェック（注文確定時にもう一度見る）
		if p.Stock < in.Quantity {
			return errInsufficientStock(p.ID, p.Name, in.Quantity)
		}

		cart, err := r.Carts().UpsertItem(ctx, actor.UserID, p.ID, in.Quantity, p.Price)
		if err != nil {
			return errDB(err)
		}

		out, err = buildCartOutput(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// RemoveItem は無い商品を指定してもエラーにしない。
func (u *CartUsecase) RemoveItem(ctx context.Context, actor policy.Actor, productID int64) (CartOutput, error) {
	if !actor.Authenticated() {
		return CartOutput{}, errUnauthorized()
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().RemoveItem(ctx, actor.UserID, productID)
		if err != nil {
			return errDB(err)
		}

		out, err = buildCartOutput(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// Clear はカートごと削除。元から無くても成功にする。
func (u *CartUsecase) Clear(ctx context.Context, actor policy.Actor) error {
	if !actor.Authenticated() {
		return errUnauthorized()
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Carts().DeleteByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return errDB(err)
		}
		return nil
	})
}

// 商品名を付けて返す。名前は今の商品から取る（価格はカートの値）
func buildCartOutput(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartOutput, error) {
	out := CartOutput{
		UserID: cart.UserID,
		Items:  make([]CartItemOutput, 0, len(cart.Items)),
		Total:  cart.Total,
	}

	for _, it := range cart.Items {
		name := ""
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if err == nil {
			name = p.Name
		} else if !errors.Is(err, repo.ErrNotFound) {
			return CartOutput{}, errDB(err)
		}

		out.Items = append(out.Items, CartItemOutput{
			ProductID: it.ProductID,
			Name:      name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	return out, nil
}
