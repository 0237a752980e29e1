package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	repo "github.com/rs-labo46/ecshop/internal/repository"
)

type productRepo struct {
	s *Store
}

func (r *productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	if err := ctx.Err(); err != nil {
		return []model.Product{}, 0, err
	}
	page, limit := normalizePage(q.Page, q.Limit, 20, 100)
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	matched := []model.Product{}
	for _, p := range r.s.st.products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if q.CategoryID != nil && p.CategoryID != *q.CategoryID {
			continue
		}
		matched = append(matched, p)
	}

	//新しい順
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start, end := pageBounds(len(matched), page, limit)
	return append([]model.Product{}, matched[start:end]...), int64(len(matched)), nil
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	p, ok := r.s.st.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	now := r.s.now()
	p.ID = r.s.st.next("products")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.s.st.products[p.ID] = p
	return p, nil
}

// stockはそのまま
func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cur, ok := r.s.st.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.CategoryID = p.CategoryID
	cur.Image = p.Image
	cur.UpdatedAt = r.s.now()
	r.s.st.products[p.ID] = cur
	return nil
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.s.st.products)), nil
}

func (r *productRepo) ListLowStock(ctx context.Context, threshold int64, limit int) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return []model.Product{}, err
	}
	out := []model.Product{}
	for _, p := range r.s.st.products {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type inventoryRepo struct {
	s *Store
}

func (r *inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, ok := r.s.st.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = r.s.now()
	r.s.st.products[productID] = p
	return true, nil
}

func (r *inventoryRepo) SetStock(ctx context.Context, productID int64, newStock int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := r.s.st.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	p.UpdatedAt = r.s.now()
	r.s.st.products[productID] = p
	return nil
}

func (r *inventoryRepo) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	adj.ID = r.s.st.next("inventory_adjustments")
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = r.s.now()
	}
	r.s.st.adjustments = append(r.s.st.adjustments, adj)
	return nil
}

type categoryRepo struct {
	s *Store
}

func (r *categoryRepo) List(ctx context.Context) ([]model.Category, error) {
	if err := ctx.Err(); err != nil {
		return []model.Category{}, err
	}
	out := make([]model.Category, 0, len(r.s.st.categories))
	for _, c := range r.s.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categoryRepo) FindByID(ctx context.Context, id int64) (model.Category, error) {
	if err := ctx.Err(); err != nil {
		return model.Category{}, err
	}
	c, ok := r.s.st.categories[id]
	if !ok {
		return model.Category{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *categoryRepo) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := ctx.Err(); err != nil {
		return model.Category{}, err
	}
	for _, ex := range r.s.st.categories {
		if ex.Name == c.Name {
			return model.Category{}, repo.ErrConflict
		}
	}
	now := r.s.now()
	c.ID = r.s.st.next("categories")
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.st.categories[c.ID] = c
	return c, nil
}

func (r *categoryRepo) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.s.st.categories)), nil
}
