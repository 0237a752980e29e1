package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/domain/policy"
	repo "github.com/rs-labo46/ecshop/internal/repository"

	"go.uber.org/zap"
)

const maxIdempotencyKeyLen = 255

// OrderUsecase は注文確定（カート→注文）と注文の参照。
type OrderUsecase struct {
	tx        repo.TransactionManager
	validator OrderValidator
	events    EventPublisher
	cache     StatsCache
	clock     Clock
	idGen     IDGenerator
}

// events/cacheはnilなら何もしない
func NewOrderUsecase(
	tx repo.TransactionManager,
	validator OrderValidator,
	events EventPublisher,
	cache StatsCache,
	clock Clock,
	idGen IDGenerator,
) *OrderUsecase {
	if events == nil {
		events = nopPublisher{}
	}
	if cache == nil {
		cache = nopStatsCache{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	if idGen == nil {
		idGen = UUIDGenerator()
	}
	return &OrderUsecase{
		tx:        tx,
		validator: validator,
		events:    events,
		cache:     cache,
		clock:     clock,
		idGen:     idGen,
	}
}

type PlaceOrderInput struct {
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	// 空なら二重送信チェックをしない
	IdempotencyKey string
}

// PlaceOrder はカートから注文を作る。
// 注文作成・在庫減算・カート削除は1つのトランザクションで、どこかで失敗したら全部戻す。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, actor policy.Actor, in PlaceOrderInput) (model.Order, error) {
	if !policy.CanPlaceOrder(actor) {
		return model.Order{}, errUnauthorized()
	}

	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if err := u.validator.ValidatePlaceOrder(in); err != nil {
		return model.Order{}, errInvalid(err)
	}
	pm, _ := model.ParsePaymentMethod(in.PaymentMethod)

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return model.Order{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid idempotency key")
	}

	var (
		out      model.Order
		replayed bool
	)
	// DBの時刻精度に合わせる
	started := u.clock.Now().Truncate(time.Microsecond)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, actor.UserID, key)
			if err != nil {
				return err
			}
			if found {
				out = existing
				replayed = true
				return attachCustomer(ctx, r, &out)
			}
		}

		//1. カート取得
		cart, err := r.Carts().FindByUserID(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && cart.IsEmpty()) {
			return emptyCartError(ctx, r, actor.UserID, started)
		}
		if err != nil {
			return err
		}

		//2. 在庫の事前チェック（確定はこの後の条件付き減算）
		names := make(map[int64]string, len(cart.Items))
		for _, it := range cart.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return WrapHTTPError(http.StatusNotFound, ErrProductNotFound,
					fmt.Sprintf("product %d not found", it.ProductID))
			}
			if err != nil {
				return err
			}
			if p.Stock < it.Quantity {
				return errInsufficientStock(p.ID, p.Name, it.Quantity)
			}
			names[p.ID] = p.Name
		}

		//3. 注文作成（明細と合計はカートからコピー）
		now := u.clock.Now()
		order := model.Order{
			Code:            u.newOrderCode(now),
			UserID:          actor.UserID,
			Items:           make([]model.OrderItem, 0, len(cart.Items)),
			Total:           cart.Total,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   pm,
			Status:          model.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}
		for _, it := range cart.Items {
			order.Items = append(order.Items, model.OrderItem{
				ProductID:   it.ProductID,
				ProductName: names[it.ProductID],
				Price:       it.Price,
				Quantity:    it.Quantity,
				CreatedAt:   now,
			})
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				// 同じキーの注文が同時に作られた
				return WrapHTTPError(http.StatusConflict, ErrConflict, "order is already being placed")
			}
			return err
		}

		//4. 在庫減算（足りなければ全部戻す）
		for _, it := range order.Items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return errInsufficientStock(it.ProductID, it.ProductName, it.Quantity)
			}

			orderID := order.ID
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   it.ProductID,
				ActorUserID: actor.UserID,
				OrderID:     &orderID,
				Delta:       -it.Quantity,
				Reason:      "order " + order.Code,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		//5. カート削除
		if err := r.Carts().DeleteByUserID(ctx, actor.UserID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				// 同じユーザーの別の注文が先に確定した
				return emptyCartError(ctx, r, actor.UserID, started)
			}
			return err
		}

		out = order
		return attachCustomer(ctx, r, &out)
	})

	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return model.Order{}, err
		}
		zap.L().Error("place order aborted",
			zap.Int64("user_id", actor.UserID),
			zap.Error(err),
		)
		return model.Order{}, WrapHTTPError(http.StatusInternalServerError,
			fmt.Errorf("%w: %v", ErrWorkflowAborted, err), "order could not be placed")
	}

	if replayed {
		return out, nil
	}

	zap.L().Info("order placed",
		zap.Int64("order_id", out.ID),
		zap.String("code", out.Code),
		zap.Int64("user_id", out.UserID),
		zap.String("total", out.Total.String()),
	)

	//6. コミット後の後処理（失敗してもログだけ）
	u.publish(ctx, OrderEvent{
		ID:         u.idGen.NewID(),
		Type:       EventOrderCreated,
		OrderID:    out.ID,
		OrderCode:  out.Code,
		UserID:     out.UserID,
		Status:     out.Status,
		Total:      out.Total,
		OccurredAt: out.CreatedAt,
	})
	invalidateStats(ctx, u.cache)

	return out, nil
}

// ORD-20240102-1A2B3C4D
func (u *OrderUsecase) newOrderCode(now time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(u.idGen.NewID(), "-", ""))
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), hex)
}

// カートが空のとき。
// 呼び出し開始後に同じユーザーの注文が確定していれば、カートはその注文が使った。
// その明細の在庫がもう足りなければ在庫不足として返す。
func emptyCartError(ctx context.Context, r repo.TxRepos, userID int64, since time.Time) error {
	empty := WrapHTTPError(http.StatusBadRequest, ErrEmptyCart, "cart is empty")

	latest, _, err := r.Orders().ListByUserID(ctx, userID, 1, 1)
	if err != nil {
		return err
	}
	if len(latest) == 0 || latest[0].CreatedAt.Before(since) {
		return empty
	}

	for _, it := range latest[0].Items {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if p.Stock < it.Quantity {
			return errInsufficientStock(p.ID, p.Name, it.Quantity)
		}
	}
	return empty
}

// 注文者の名前とemailを埋める。ユーザーが無ければそのまま
func attachCustomer(ctx context.Context, r repo.TxRepos, o *model.Order) error {
	u, err := r.Users().FindByID(ctx, o.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	o.Customer = &model.OrderCustomer{ID: u.ID, Name: u.Name, Email: u.Email}
	return nil
}

func (u *OrderUsecase) publish(ctx context.Context, ev OrderEvent) {
	if err := u.events.Publish(ctx, ev); err != nil {
		zap.L().Warn("publish order event failed",
			zap.String("type", ev.Type),
			zap.Int64("order_id", ev.OrderID),
			zap.Error(err),
		)
	}
}

func invalidateStats(ctx context.Context, cache StatsCache) {
	if err := cache.Invalidate(ctx); err != nil {
		zap.L().Warn("invalidate stats cache failed", zap.Error(err))
	}
}

type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListOrders は自分の注文一覧。管理者なら全員分（status/user_idで絞り込み可）。
func (u *OrderUsecase) ListOrders(ctx context.Context, actor policy.Actor, in ListOrdersInput) (OrderListOutput, error) {
	if !actor.Authenticated() {
		return OrderListOutput{}, errUnauthorized()
	}
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 10
	}
	if in.Page < 1 {
		return OrderListOutput{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid limit")
	}

	var status *model.OrderStatus
	if s := strings.TrimSpace(in.Status); s != "" {
		st, ok := model.ParseOrderStatus(s)
		if !ok {
			return OrderListOutput{}, WrapHTTPError(http.StatusBadRequest, ErrInvalidStatus, "invalid status")
		}
		status = &st
	}

	allUsers := policy.CanListAllOrders(actor)
	if !allUsers && in.UserID != nil && *in.UserID != actor.UserID {
		return OrderListOutput{}, errForbidden()
	}

	var (
		items []model.Order
		total int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if allUsers || status != nil {
			f := repo.AdminOrderListFilter{Page: in.Page, Limit: in.Limit, Status: status, UserID: in.UserID}
			if !allUsers {
				uid := actor.UserID
				f.UserID = &uid
			}
			items, total, err = r.Orders().ListAdmin(ctx, f)
		} else {
			items, total, err = r.Orders().ListByUserID(ctx, actor.UserID, in.Page, in.Limit)
		}
		if err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}

	return OrderListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// GetOrder は持ち主か管理者だけが見られる。
func (u *OrderUsecase) GetOrder(ctx context.Context, actor policy.Actor, orderID int64) (model.Order, error) {
	if !actor.Authenticated() {
		return model.Order{}, errUnauthorized()
	}
	if orderID <= 0 {
		return model.Order{}, WrapHTTPError(http.StatusBadRequest, ErrValidation, "invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("order")
		}
		if err != nil {
			return errDB(err)
		}

		if !policy.CanViewOrder(actor, o) {
			return errForbidden()
		}
		out = o
		if err := attachCustomer(ctx, r, &out); err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}
