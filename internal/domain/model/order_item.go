package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細はカート明細のコピー（商品とはリンクしない）
type OrderItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64           `gorm:"not null;index" json:"-"`
	ProductID   int64           `gorm:"not null;index" json:"productId"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"productName"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}
