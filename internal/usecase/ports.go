package usecase

import (
	"context"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

func SystemClock() Clock { return systemClock{} }
func UUIDGenerator() IDGenerator { return uuidGenerator{} }

// JWTを発行する約束
type TokenIssuer interface {
	Issue(user model.User, now time.Time) (token string, expiresAt time.Time, err error)
}

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// 注文イベント。コミット後に送る
type OrderEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OrderID    int64             `json:"orderId"`
	OrderCode  string            `json:"orderCode"`
	UserID     int64             `json:"userId"`
	Status     model.OrderStatus `json:"status"`
	PrevStatus model.OrderStatus `json:"prevStatus,omitempty"`
	Total      decimal.Decimal   `json:"total"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// イベント送信。失敗しても注文は取り消さない
type EventPublisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// 管理画面の集計キャッシュ。
// Getは今の世代も返す。Setはその世代に書くので、間にInvalidateが入った古い集計は読まれない。
type StatsCache interface {
	Get(ctx context.Context) (stats AdminStats, gen int64, hit bool, err error)
	Set(ctx context.Context, gen int64, stats AdminStats) error
	Invalidate(ctx context.Context) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, OrderEvent) error { return nil }

type nopStatsCache struct{}

func (nopStatsCache) Get(context.Context) (AdminStats, int64, bool, error) {
	return AdminStats{}, 0, false, nil
}
func (nopStatsCache) Set(context.Context, int64, AdminStats) error { return nil }
func (nopStatsCache) Invalidate(context.Context) error { return nil }

// 入力チェックの約束（internal/validator が実装）
type OrderValidator interface {
	ValidatePlaceOrder(in PlaceOrderInput) error
}

type AuthValidator interface {
	ValidateRegister(in RegisterInput) error
	ValidateLogin(in LoginInput) error
}

type CatalogValidator interface {
	ValidateProduct(in ProductInput) error
	ValidateStock(stock int64) error
	ValidateCategory(in CategoryInput) error
}
