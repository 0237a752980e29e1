package memory

import (
	"context"
	"errors"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

type cartRepo struct {
	s *Store
}

func (r *cartRepo) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	if err := ctx.Err(); err != nil {
		return model.Cart{}, err
	}
	c, ok := r.s.st.carts[userID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return copyCart(c), nil
}

func (r *cartRepo) UpsertItem(ctx context.Context, userID int64, productID int64, qty int64, price decimal.Decimal) (model.Cart, error) {
	if err := ctx.Err(); err != nil {
		return model.Cart{}, err
	}
	if qty < 1 {
		return model.Cart{}, errors.New("invalid quantity")
	}

	now := r.s.now()
	cart, ok := r.s.st.carts[userID]
	if !ok {
		cart = model.EmptyCart(userID)
		cart.ID = r.s.st.next("carts")
		cart.CreatedAt = now
	}
	cart = copyCart(cart)

	replaced := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			// 加算ではなく置き換え
			cart.Items[i].Quantity = qty
			cart.Items[i].Price = price
			cart.Items[i].UpdatedAt = now
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Items = append(cart.Items, model.CartItem{
			ID:        r.s.st.next("cart_items"),
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  qty,
			Price:     price,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	cart.Recalculate()
	cart.UpdatedAt = now
	r.s.st.carts[userID] = cart
	return copyCart(cart), nil
}

func (r *cartRepo) RemoveItem(ctx context.Context, userID int64, productID int64) (model.Cart, error) {
	if err := ctx.Err(); err != nil {
		return model.Cart{}, err
	}
	cart, ok := r.s.st.carts[userID]
	if !ok {
		return model.EmptyCart(userID), nil
	}

	items := make([]model.CartItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	if len(items) == len(cart.Items) {
		return copyCart(cart), nil
	}

	cart.Items = items
	cart.Recalculate()
	cart.UpdatedAt = r.s.now()
	r.s.st.carts[userID] = cart
	return copyCart(cart), nil
}

func (r *cartRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := r.s.st.carts[userID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.st.carts, userID)
	return nil
}
