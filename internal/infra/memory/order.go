package memory

import (
	"context"
	"sort"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

type orderRepo struct {
	s *Store
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, ex := range r.s.st.orders {
		if ex.Code == order.Code {
			return repo.ErrConflict
		}
		if order.IdempotencyKey != nil && ex.IdempotencyKey != nil &&
			ex.UserID == order.UserID && *ex.IdempotencyKey == *order.IdempotencyKey {
			return repo.ErrConflict
		}
	}

	now := r.s.now()
	order.ID = r.s.st.next("orders")
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	for i := range order.Items {
		order.Items[i].ID = r.s.st.next("order_items")
		order.Items[i].OrderID = order.ID
		if order.Items[i].CreatedAt.IsZero() {
			order.Items[i].CreatedAt = order.CreatedAt
		}
	}

	r.s.st.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, err
	}
	o, ok := r.s.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	uid := userID
	return r.ListAdmin(ctx, repo.AdminOrderListFilter{Page: page, Limit: limit, UserID: &uid})
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o, ok := r.s.st.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = r.s.now()
	r.s.st.orders[orderID] = o
	return nil
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, false, err
	}
	for _, o := range r.s.st.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return copyOrder(o), true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r *orderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if err := ctx.Err(); err != nil {
		return []model.Order{}, 0, err
	}
	page, limit := normalizePage(f.Page, f.Limit, 10, 100)

	matched := []model.Order{}
	for _, o := range r.s.st.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		matched = append(matched, o)
	}

	//新しい順
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start, end := pageBounds(len(matched), page, limit)
	out := make([]model.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, copyOrder(o))
	}
	return out, int64(len(matched)), nil
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.s.st.orders)), nil
}

func (r *orderRepo) SummaryByStatus(ctx context.Context) ([]repo.StatusSummary, error) {
	if err := ctx.Err(); err != nil {
		return []repo.StatusSummary{}, err
	}
	byStatus := map[model.OrderStatus]*repo.StatusSummary{}
	for _, o := range r.s.st.orders {
		sum, ok := byStatus[o.Status]
		if !ok {
			sum = &repo.StatusSummary{Status: o.Status, Total: decimal.Zero}
			byStatus[o.Status] = sum
		}
		sum.Count++
		sum.Total = sum.Total.Add(o.Total)
	}

	out := make([]repo.StatusSummary, 0, len(byStatus))
	for _, s := range byStatus {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (r *orderRepo) TopProducts(ctx context.Context, limit int) ([]repo.ProductSales, error) {
	if err := ctx.Err(); err != nil {
		return []repo.ProductSales{}, err
	}
	byProduct := map[int64]*repo.ProductSales{}
	for _, o := range r.s.st.orders {
		for _, it := range o.Items {
			ps, ok := byProduct[it.ProductID]
			if !ok {
				ps = &repo.ProductSales{ProductID: it.ProductID, Name: it.ProductName, Revenue: decimal.Zero}
				byProduct[it.ProductID] = ps
			}
			if it.ProductName > ps.Name {
				ps.Name = it.ProductName
			}
			ps.UnitsSold += it.Quantity
			ps.Revenue = ps.Revenue.Add(it.Subtotal())
		}
	}

	out := make([]repo.ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnitsSold != out[j].UnitsSold {
			return out[i].UnitsSold > out[j].UnitsSold
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
