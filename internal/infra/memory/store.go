// Package memory はプロセス内で完結するrepository実装。
// テストとSTORE_DRIVER=memoryで使う。
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	repo "github.com/rs-labo46/ecshop/internal/repository"
)

type state struct {
	users       map[int64]model.User
	products    map[int64]model.Product
	categories  map[int64]model.Category
	carts       map[int64]model.Cart // key: user_id
	orders      map[int64]model.Order
	adjustments []model.InventoryAdjustment
	auditLogs   []model.AuditLog
	seq         map[string]int64
}

func newState() *state {
	return &state{
		users:      map[int64]model.User{},
		products:   map[int64]model.Product{},
		categories: map[int64]model.Category{},
		carts:      map[int64]model.Cart{},
		orders:     map[int64]model.Order{},
		seq:        map[string]int64{},
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// ロールバック用のスナップショット
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = copyCart(v)
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	c.adjustments = append([]model.InventoryAdjustment(nil), s.adjustments...)
	c.auditLogs = append([]model.AuditLog(nil), s.auditLogs...)
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func copyCart(c model.Cart) model.Cart {
	items := make([]model.CartItem, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

func copyOrder(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		o.IdempotencyKey = &k
	}
	return o
}

// Store は全テーブルを1つのロックで守る。
// トランザクションは直列に実行され、失敗したら開始時点の状態に戻す。
// 毎回全テーブルを複製するので、データ量に比例して遅くなる。小さな環境向け。
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repo.TransactionManager = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ロック待ちの間に期限切れになった
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.st.clone()
	committed := false
	defer func() {
		// エラー・panic・キャンセルのどれでも元に戻す
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(&txRepos{s: s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}

// 在庫履歴のコピー
func (s *Store) Adjustments() []model.InventoryAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InventoryAdjustment{}, s.st.adjustments...)
}

type txRepos struct {
	s *Store
}

func (r *txRepos) Orders() repo.OrderRepository { return &orderRepo{s: r.s} }
func (r *txRepos) Carts() repo.CartRepository { return &cartRepo{s: r.s} }
func (r *txRepos) Inventory() repo.InventoryRepository { return &inventoryRepo{s: r.s} }
func (r *txRepos) Products() repo.ProductRepository { return &productRepo{s: r.s} }
func (r *txRepos) Categories() repo.CategoryRepository { return &categoryRepo{s: r.s} }
func (r *txRepos) Users() repo.UserRepository { return &userRepo{s: r.s} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return &auditLogRepo{s: r.s} }

func normalizePage(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return page, limit
}

// [offset, offset+limit) を切り出す
func pageBounds(n, page, limit int) (int, int) {
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}
